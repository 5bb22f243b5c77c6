package pipeline

import (
	"strings"

	"solpipe/internal"
)

// Merge reconciles a fresh canonical export into the canonical masterfile.
// Three passes over the data:
//
//  1. update: every master record whose name appears in the incoming set
//     gets its Salesforce fields refreshed from the first incoming record
//     with that name; team-authored fields are untouched.
//  2. add: incoming names absent from the master are appended with blank
//     team fields.
//  3. flag: master names absent from the incoming export get the removal
//     marker appended to Solutions Notes. Rows are never deleted.
//
// Blank names are excluded from all three passes: blank-named master rows
// pass through unchanged, blank-named incoming rows are dropped. Duplicate
// incoming names resolve first-match-wins.
//
// Merge is pure; both inputs are left unmodified.
func Merge(master, incoming []internal.Opportunity) ([]internal.Opportunity, internal.MergeStats) {
	firstByName := make(map[string]internal.Opportunity, len(incoming))
	for _, o := range incoming {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		if _, seen := firstByName[name]; !seen {
			firstByName[name] = o
		}
	}

	masterNames := make(map[string]struct{}, len(master))
	for _, o := range master {
		name := strings.TrimSpace(o.Name)
		if name != "" {
			masterNames[name] = struct{}{}
		}
	}

	stats := internal.MergeStats{}
	merged := make([]internal.Opportunity, 0, len(master)+len(incoming))

	removedNames := map[string]struct{}{}
	for name := range masterNames {
		if _, ok := firstByName[name]; !ok {
			removedNames[name] = struct{}{}
		}
	}
	stats.Removed = len(removedNames)

	for _, o := range master {
		name := strings.TrimSpace(o.Name)
		if src, ok := firstByName[name]; ok && name != "" {
			internal.CopySalesforceFields(&o, src)
			stats.Updated++
		}
		if _, flagged := removedNames[name]; flagged && name != "" {
			o.SolutionsNotes = o.SolutionsNotes + " " + internal.RemovedMarker
		}
		merged = append(merged, o)
	}

	added := map[string]struct{}{}
	for _, o := range incoming {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		if _, exists := masterNames[name]; exists {
			continue
		}
		if _, dup := added[name]; dup {
			continue
		}
		added[name] = struct{}{}

		rec := firstByName[name]
		rec.SolutionsNotes = ""
		rec.Tasks = ""
		rec.ActionItems = ""
		rec.CommentsResults = ""
		merged = append(merged, rec)
		stats.Added++
	}

	stats.Total = len(merged)
	return merged, stats
}
