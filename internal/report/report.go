// Package report derives the dashboard aggregates from a merged canonical
// dataset. Everything here is a pure function of the records plus an
// explicit reference day; nothing reads the clock or mutates state.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solpipe/internal"
	"solpipe/internal/pipeline"
	"solpipe/internal/util"
)

type BucketAgg struct {
	Label string          `json:"label"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

type GroupAgg struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

type AtRiskRow struct {
	Name          string          `json:"name"`
	Account       string          `json:"account"`
	Resource      string          `json:"resource"`
	StageDuration int             `json:"stageDuration"`
	PAR           decimal.Decimal `json:"par"`
	RiskScore     float64         `json:"riskScore"`
}

type Summary struct {
	TotalValue        decimal.Decimal `json:"totalValue"`
	TotalValueDisplay string          `json:"totalValueDisplay"`
	Count             int             `json:"count"`
	AvgStageDuration  float64         `json:"avgStageDuration"`
	PastDue           int             `json:"pastDue"`

	StatusCounts map[string]int `json:"statusCounts"`

	ReceivedByTeam int     `json:"receivedByTeam"`
	ClosedByTeam   int     `json:"closedByTeam"`
	AvgCycleDays   float64 `json:"avgCycleDays"`

	ByStage   []GroupAgg  `json:"byStage"`
	ByProduct []GroupAgg  `json:"byProduct"`
	Aging     []BucketAgg `json:"aging"`
	TopAtRisk []AtRiskRow `json:"topAtRisk"`
}

// Build computes the full dashboard summary for the given reference day.
func Build(records []internal.Opportunity, today time.Time, atRiskN int) Summary {
	s := Summary{
		TotalValue:   decimal.Zero,
		Count:        len(records),
		StatusCounts: map[string]int{},
	}

	stageAgg := map[string]*GroupAgg{}
	productAgg := map[string]*GroupAgg{}
	bucketAgg := map[string]*BucketAgg{}
	for _, b := range pipeline.AgingBuckets {
		bucketAgg[b.Label] = &BucketAgg{Label: b.Label, Value: decimal.Zero}
	}

	durationSum := 0
	cycleSum := 0
	cycleN := 0

	for _, o := range records {
		s.TotalValue = s.TotalValue.Add(o.PAR)
		durationSum += o.StageDuration
		s.StatusCounts[o.Status]++

		if pipeline.IsPastDue(o, today) {
			s.PastDue++
		}
		if o.ReceivedBySolutions != nil {
			s.ReceivedByTeam++
		}
		if o.ClosedBySolutions != nil {
			s.ClosedByTeam++
		}
		if days, ok := pipeline.SolutionsCycleDays(o); ok {
			cycleSum += days
			cycleN++
		}

		addGroup(stageAgg, o.Stage, o.PAR)
		addGroup(productAgg, o.Product, o.PAR)

		b := bucketAgg[pipeline.AgingBucket(o.StageDuration)]
		b.Count++
		b.Value = b.Value.Add(o.PAR)
	}

	if len(records) > 0 {
		s.AvgStageDuration = float64(durationSum) / float64(len(records))
	}
	if cycleN > 0 {
		s.AvgCycleDays = float64(cycleSum) / float64(cycleN)
	}
	s.TotalValueDisplay = util.FormatMoney(s.TotalValue)

	s.ByStage = sortedGroups(stageAgg)
	s.ByProduct = sortedGroups(productAgg)

	for _, b := range pipeline.AgingBuckets {
		s.Aging = append(s.Aging, *bucketAgg[b.Label])
	}

	for _, o := range pipeline.TopAtRisk(records, atRiskN) {
		s.TopAtRisk = append(s.TopAtRisk, AtRiskRow{
			Name:          o.Name,
			Account:       o.AccountName,
			Resource:      o.SolutionResource,
			StageDuration: o.StageDuration,
			PAR:           o.PAR,
			RiskScore:     pipeline.RiskScore(o),
		})
	}

	return s
}

func addGroup(agg map[string]*GroupAgg, key string, value decimal.Decimal) {
	g, ok := agg[key]
	if !ok {
		g = &GroupAgg{Key: key, Value: decimal.Zero}
		agg[key] = g
	}
	g.Count++
	g.Value = g.Value.Add(value)
}

func sortedGroups(agg map[string]*GroupAgg) []GroupAgg {
	out := make([]GroupAgg, 0, len(agg))
	for _, g := range agg {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Key < out[j].Key
	})
	return out
}
