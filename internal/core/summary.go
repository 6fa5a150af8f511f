package core

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Summary holds headline totals derived from a snapshot of entries.
type Summary struct {
	TotalChildren   float64 `json:"totalChildren"`
	OutOfSchool     float64 `json:"outOfSchool"`
	TotalGirls      float64 `json:"totalGirls"`
	TotalBoys       float64 `json:"totalBoys"`
	GirlsPercentage float64 `json:"girlsPercentage"`
	BoysPercentage  float64 `json:"boysPercentage"`
}

// StatCard is one headline tile of the dashboard.
type StatCard struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Summarize reduces entries to headline totals. Girls are weighted by each
// entry's own child count; boys are whatever remains. Nil entries are
// skipped and malformed numbers have already decoded to zero.
func Summarize(entries []*Entry) Summary {
	var s Summary
	for _, e := range entries {
		if e == nil {
			continue
		}
		children := e.TotalChildren.Float()
		s.TotalChildren += children
		s.OutOfSchool += e.OutOfSchoolChildren.Float()
		s.TotalGirls += (e.GirlsPercentage.Float() / 100) * children
	}
	s.TotalBoys = s.TotalChildren - s.TotalGirls
	s.GirlsPercentage = percentOf(s.TotalGirls, s.TotalChildren)
	s.BoysPercentage = percentOf(s.TotalBoys, s.TotalChildren)
	return s
}

// percentOf returns part/total*100 rounded to one decimal, 0 unless total
// is positive.
func percentOf(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := part / total * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(p).Round(1).Float64()
	return f
}

// Cards renders the summary as the four dashboard tiles.
func (s Summary) Cards() []StatCard {
	return []StatCard{
		{Title: "Total Children", Value: FormatCount(s.TotalChildren)},
		{Title: "Out Of School", Value: FormatCount(s.OutOfSchool)},
		{Title: "Girls (%)", Value: s.formatPercent(s.GirlsPercentage)},
		{Title: "Boys (%)", Value: s.formatPercent(s.BoysPercentage)},
	}
}

func (s Summary) formatPercent(p float64) string {
	if s.TotalChildren <= 0 {
		return "0%"
	}
	return decimal.NewFromFloat(p).StringFixed(1) + "%"
}

// FormatCount formats a count with thousands separators, keeping up to
// three fractional digits for non-integral values.
func FormatCount(v float64) string {
	return humanize.CommafWithDigits(v, 3)
}
