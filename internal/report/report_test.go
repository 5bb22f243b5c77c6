package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solpipe/internal"
)

func mkRecord(name, stage string, par int64, duration int) internal.Opportunity {
	o := internal.NewOpportunity()
	o.Name = name
	o.Stage = stage
	o.PAR = decimal.NewFromInt(par)
	o.StageDuration = duration
	return o
}

func TestBuildSummary(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	pastDue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	received := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	a := mkRecord("A", "Stage 2", 1_000_000, 10)
	a.CloseDate = &pastDue
	a.Status = internal.StatusWorking
	a.ReceivedBySolutions = &received
	a.ClosedBySolutions = &closed

	b := mkRecord("B", "Stage 2", 500_000, 70)
	c := mkRecord("C", "Stage 3", 250_000, 120)

	s := Build([]internal.Opportunity{a, b, c}, today, 2)

	if s.Count != 3 {
		t.Fatalf("count=%d", s.Count)
	}
	if s.TotalValue.String() != "1750000" {
		t.Fatalf("total=%s", s.TotalValue)
	}
	if s.TotalValueDisplay != "$1.8M" {
		t.Fatalf("display=%q", s.TotalValueDisplay)
	}
	if s.PastDue != 1 {
		t.Fatalf("pastDue=%d", s.PastDue)
	}
	if s.StatusCounts[internal.StatusWorking] != 1 || s.StatusCounts[internal.StatusUnassigned] != 2 {
		t.Fatalf("statusCounts=%v", s.StatusCounts)
	}
	if s.ReceivedByTeam != 1 || s.ClosedByTeam != 1 || s.AvgCycleDays != 10 {
		t.Fatalf("cycle: %d %d %f", s.ReceivedByTeam, s.ClosedByTeam, s.AvgCycleDays)
	}

	if len(s.ByStage) != 2 || s.ByStage[0].Key != "Stage 2" {
		t.Fatalf("byStage=%+v", s.ByStage)
	}
	if s.ByStage[0].Count != 2 || s.ByStage[0].Value.String() != "1500000" {
		t.Fatalf("byStage[0]=%+v", s.ByStage[0])
	}

	if len(s.Aging) != 5 {
		t.Fatalf("aging=%d buckets", len(s.Aging))
	}
	var byLabel = map[string]BucketAgg{}
	for _, bucket := range s.Aging {
		byLabel[bucket.Label] = bucket
	}
	if byLabel["0-14d"].Count != 1 || byLabel["61-90d"].Count != 1 || byLabel["90d+"].Count != 1 {
		t.Fatalf("aging=%+v", s.Aging)
	}
	if byLabel["15-30d"].Count != 0 {
		t.Fatal("empty buckets must still be present")
	}

	if len(s.TopAtRisk) != 2 {
		t.Fatalf("topAtRisk=%d", len(s.TopAtRisk))
	}
	if s.TopAtRisk[0].Name != "A" {
		t.Fatalf("topAtRisk[0]=%s", s.TopAtRisk[0].Name)
	}
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil, time.Now(), 5)
	if s.Count != 0 || s.AvgStageDuration != 0 || s.AvgCycleDays != 0 {
		t.Fatalf("s=%+v", s)
	}
	if !s.TotalValue.IsZero() {
		t.Fatalf("total=%s", s.TotalValue)
	}
	if len(s.Aging) != 5 {
		t.Fatalf("aging=%d", len(s.Aging))
	}
}
