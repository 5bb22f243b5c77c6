package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"solpipe/internal"
	"solpipe/internal/config"
	"solpipe/internal/util"
)

// ErrMissingKeyColumn rejects an upload whose header row carries no
// Opportunity Name column. Nothing can be reconciled without the key.
var ErrMissingKeyColumn = errors.New("upload has no Opportunity Name column")

// headerAliases maps each canonical column to the normalized header
// spellings accepted on upload. Resolution is a plain lookup, resolved once
// per table; unmatched raw columns are dropped.
var headerAliases = map[string][]string{
	internal.ColStage:               {"stage", "salesstage"},
	internal.ColSolutionResource:    {"solutionresource", "solutionsresource"},
	internal.ColAccountName:         {"accountname", "account"},
	internal.ColOwnerRole:           {"ownerrole", "ownerrole/region", "ownerregion"},
	internal.ColOpportunityName:     {"opportunityname", "oppname"},
	internal.ColOpportunityOwner:    {"opportunityowner", "oppowner"},
	internal.ColMainPrimaryService:  {"mainprimaryservice", "primaryservice"},
	internal.ColOpportunityPAR:      {"opportunitypar", "parvalue", "par"},
	internal.ColStageDuration:       {"stageduration", "stagedurationdays"},
	internal.ColCloseDate:           {"closedate"},
	internal.ColNotes:               {"notes"},
	internal.ColStatus:              {"status", "solutionsstatus"},
	internal.ColReceivedBySolutions: {"receivedbysolutions", "receivedbyteam"},
	internal.ColClosedBySolutions:   {"closedbysolutions", "closedbyteam"},
	internal.ColProduct:             {"product"},
	internal.ColSolutionsNotes:      {"solutionsnotes"},
	internal.ColTasks:               {"tasks"},
	internal.ColActionItems:         {"actionitems"},
	internal.ColCommentsResults:     {"comments/results", "commentsresults", "comments"},
}

// DateHints carries the per-column-group disambiguation orders.
type DateHints struct {
	CloseDate util.DateOrder
	TeamDates util.DateOrder
}

// HintsFromConfig resolves the configured date conventions.
func HintsFromConfig(cfg config.Config) DateHints {
	return DateHints{
		CloseDate: util.ParseDateOrder(cfg.CloseDateOrder),
		TeamDates: util.ParseDateOrder(cfg.TeamDateOrder),
	}
}

// Canonicalize maps an uploaded table onto the canonical column set and
// parses every cell into its typed form. Malformed cells degrade to
// defaults; only a missing key column is an error, and then no partial
// output is produced.
func Canonicalize(table internal.RawTable, hints DateHints) ([]internal.Opportunity, error) {
	colIdx := resolveColumns(table.Headers)
	if _, ok := colIdx[internal.ColOpportunityName]; !ok {
		return nil, fmt.Errorf("canonicalize: %w", ErrMissingKeyColumn)
	}

	out := make([]internal.Opportunity, 0, len(table.Rows))
	for _, row := range table.Rows {
		cell := func(canonical string) string {
			idx, ok := colIdx[canonical]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		o := internal.NewOpportunity()
		o.Stage = cell(internal.ColStage)
		o.SolutionResource = cell(internal.ColSolutionResource)
		o.AccountName = cell(internal.ColAccountName)
		o.OwnerRole = cell(internal.ColOwnerRole)
		o.Name = cell(internal.ColOpportunityName)
		o.Owner = cell(internal.ColOpportunityOwner)
		o.MainPrimaryService = cell(internal.ColMainPrimaryService)
		o.PAR = util.ParseMoney(cell(internal.ColOpportunityPAR))
		o.StageDuration = util.ParseDuration(cell(internal.ColStageDuration))
		o.Notes = cell(internal.ColNotes)

		if v := cell(internal.ColStatus); v != "" {
			o.Status = v
		}
		if v := cell(internal.ColProduct); v != "" {
			o.Product = v
		}

		if t, ok := util.ParseDate(cell(internal.ColCloseDate), hints.CloseDate); ok {
			o.CloseDate = &t
		}
		if t, ok := util.ParseDate(cell(internal.ColReceivedBySolutions), hints.TeamDates); ok {
			o.ReceivedBySolutions = &t
		}
		if t, ok := util.ParseDate(cell(internal.ColClosedBySolutions), hints.TeamDates); ok {
			o.ClosedBySolutions = &t
		}

		o.SolutionsNotes = cell(internal.ColSolutionsNotes)
		o.Tasks = cell(internal.ColTasks)
		o.ActionItems = cell(internal.ColActionItems)
		o.CommentsResults = cell(internal.ColCommentsResults)

		out = append(out, o)
	}

	return out, nil
}

// resolveColumns matches raw headers against the alias table. The first raw
// column matching a canonical name wins; placeholder headers are skipped.
func resolveColumns(headers []string) map[string]int {
	lookup := map[string]string{}
	for canonical, aliases := range headerAliases {
		lookup[util.NormalizeHeaderKey(canonical)] = canonical
		for _, a := range aliases {
			lookup[a] = canonical
		}
	}

	out := map[string]int{}
	for i, h := range headers {
		if util.IsPlaceholderHeader(h) {
			continue
		}
		canonical, ok := lookup[util.NormalizeHeaderKey(h)]
		if !ok {
			continue
		}
		if _, taken := out[canonical]; taken {
			continue
		}
		out[canonical] = i
	}
	return out
}
