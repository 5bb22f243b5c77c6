package pipeline

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"solpipe/internal"
)

func opp(name string) internal.Opportunity {
	o := internal.NewOpportunity()
	o.Name = name
	return o
}

func TestMergeUpdatePreservesTeamFields(t *testing.T) {
	master := opp("Acme Refresh")
	master.PAR = decimal.NewFromInt(100)
	master.SolutionsNotes = "working with SE"
	master.Tasks = "sizing call"
	master.ActionItems = "send BOM"
	master.CommentsResults = "trial approved"

	incoming := opp("Acme Refresh")
	incoming.PAR = decimal.NewFromInt(150)
	incoming.Stage = "Stage 3"

	merged, stats := Merge([]internal.Opportunity{master}, []internal.Opportunity{incoming})
	if stats.Updated != 1 || stats.Added != 0 || stats.Removed != 0 || stats.Total != 1 {
		t.Fatalf("stats=%+v", stats)
	}

	got := merged[0]
	if got.PAR.String() != "150" || got.Stage != "Stage 3" {
		t.Fatalf("salesforce fields not refreshed: %+v", got)
	}
	if got.SolutionsNotes != "working with SE" || got.Tasks != "sizing call" ||
		got.ActionItems != "send BOM" || got.CommentsResults != "trial approved" {
		t.Fatalf("team fields changed: %+v", got)
	}
}

func TestMergeAddition(t *testing.T) {
	incoming := opp("Brand New Deal")
	incoming.PAR = decimal.NewFromInt(50)
	incoming.SolutionsNotes = "noise from upload"
	incoming.Tasks = "noise"

	merged, stats := Merge(nil, []internal.Opportunity{incoming})
	if stats.Added != 1 || stats.Total != 1 {
		t.Fatalf("stats=%+v", stats)
	}

	got := merged[0]
	if got.Name != "Brand New Deal" || got.PAR.String() != "50" {
		t.Fatalf("added record wrong: %+v", got)
	}
	if got.SolutionsNotes != "" || got.Tasks != "" || got.ActionItems != "" || got.CommentsResults != "" {
		t.Fatalf("added record must start with blank team fields: %+v", got)
	}
}

func TestMergeRemovalFlag(t *testing.T) {
	a := opp("A")
	b := opp("B")
	b.SolutionsNotes = "existing note"
	b.Stage = "Stage 4"

	merged, stats := Merge([]internal.Opportunity{a, b}, []internal.Opportunity{opp("A")})
	if stats.Removed != 1 || stats.Total != 2 {
		t.Fatalf("stats=%+v", stats)
	}

	got := merged[1]
	if !strings.HasSuffix(got.SolutionsNotes, internal.RemovedMarker) {
		t.Fatalf("marker missing: %q", got.SolutionsNotes)
	}
	if !strings.HasPrefix(got.SolutionsNotes, "existing note") {
		t.Fatalf("existing notes erased: %q", got.SolutionsNotes)
	}
	if got.Stage != "Stage 4" || got.Tasks != b.Tasks {
		t.Fatalf("flag pass touched other fields: %+v", got)
	}
}

// Physical row count never shrinks: removal is a flag, not a delete.
func TestMergeConservation(t *testing.T) {
	master := []internal.Opportunity{opp("A"), opp("B"), opp("C")}
	incoming := []internal.Opportunity{opp("B"), opp("D"), opp("E")}

	merged, stats := Merge(master, incoming)
	if len(merged) != len(master)+stats.Added {
		t.Fatalf("len=%d master=%d added=%d", len(merged), len(master), stats.Added)
	}
	if stats.Updated != 1 || stats.Added != 2 || stats.Removed != 2 || stats.Total != 5 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestMergeEndToEnd(t *testing.T) {
	master := opp("A")
	master.PAR = decimal.NewFromInt(100)
	master.SolutionsNotes = "keep"

	in1 := opp("A")
	in1.PAR = decimal.NewFromInt(150)
	in2 := opp("B")
	in2.PAR = decimal.NewFromInt(50)

	merged, stats := Merge([]internal.Opportunity{master}, []internal.Opportunity{in1, in2})
	if stats.Updated != 1 || stats.Added != 1 || stats.Removed != 0 || stats.Total != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	if merged[0].Name != "A" || merged[0].PAR.String() != "150" || merged[0].SolutionsNotes != "keep" {
		t.Fatalf("merged[0]=%+v", merged[0])
	}
	if merged[1].Name != "B" || merged[1].PAR.String() != "50" || merged[1].SolutionsNotes != "" {
		t.Fatalf("merged[1]=%+v", merged[1])
	}
}

func TestMergeBlankNames(t *testing.T) {
	blankMaster := internal.NewOpportunity()
	blankMaster.SolutionsNotes = "orphan row"

	blankIncoming := internal.NewOpportunity()
	blankIncoming.Stage = "Stage 1"

	merged, stats := Merge(
		[]internal.Opportunity{blankMaster, opp("A")},
		[]internal.Opportunity{blankIncoming, opp("A")},
	)
	if stats.Added != 0 || stats.Removed != 0 || stats.Total != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	if merged[0].SolutionsNotes != "orphan row" || merged[0].Stage != "" {
		t.Fatalf("blank-named master row should pass through unchanged: %+v", merged[0])
	}
}

func TestMergeDuplicateIncomingFirstMatchWins(t *testing.T) {
	first := opp("Dup")
	first.PAR = decimal.NewFromInt(10)
	second := opp("Dup")
	second.PAR = decimal.NewFromInt(999)

	merged, stats := Merge(nil, []internal.Opportunity{first, second})
	if stats.Added != 1 || stats.Total != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if merged[0].PAR.String() != "10" {
		t.Fatalf("first match must win: PAR=%s", merged[0].PAR)
	}
}

// Pins the documented duplicate-flagging behavior: a second merge from an
// export that still omits a flagged record appends the marker again.
func TestMergeRepeatedRemovalAppendsMarkerAgain(t *testing.T) {
	master := []internal.Opportunity{opp("A"), opp("Gone")}
	incoming := []internal.Opportunity{opp("A")}

	once, _ := Merge(master, incoming)
	twice, stats := Merge(once, incoming)
	if stats.Removed != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if got := strings.Count(twice[1].SolutionsNotes, internal.RemovedMarker); got != 2 {
		t.Fatalf("marker count=%d notes=%q", got, twice[1].SolutionsNotes)
	}
}

func TestMergeInputsUnmodified(t *testing.T) {
	master := []internal.Opportunity{opp("A")}
	incoming := []internal.Opportunity{opp("B")}
	incoming[0].SolutionsNotes = "stays"

	Merge(master, incoming)
	if master[0].SolutionsNotes != "" {
		t.Fatalf("master mutated: %+v", master[0])
	}
	if incoming[0].SolutionsNotes != "stays" {
		t.Fatalf("incoming mutated: %+v", incoming[0])
	}
}
