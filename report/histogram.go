package report

import (
	"math"
	"strconv"
)

// Bin is one histogram bar covering [Lo, Hi); the last bin includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Label renders the bin range, e.g. "60-62.5".
func (b Bin) Label() string {
	return round2(b.Lo) + "-" + round2(b.Hi)
}

func round2(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// Histogram is the frequency distribution of the non-null scores.
type Histogram struct {
	Bins     []Bin    `json:"bins"`
	Mean     *float64 `json:"national_mean"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	MaxCount int      `json:"max_count"`
	Scores   int      `json:"scores"`
}

// Histogram splits the finite scores into equal-width bins between the
// lowest and highest score. A single distinct score v spans [v-0.5, v+0.5].
func (r *Report) Histogram(bins int) Histogram {
	h := Histogram{Mean: r.NationalMean}
	var scores []float64
	for _, row := range r.Rows {
		if row.Score != nil && !math.IsNaN(*row.Score) && !math.IsInf(*row.Score, 0) {
			scores = append(scores, *row.Score)
		}
	}
	if len(scores) == 0 || bins <= 0 {
		return h
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	h.Min, h.Max, h.Scores = lo, hi, len(scores)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i] = Bin{Lo: lo + float64(i)*width, Hi: lo + float64(i+1)*width}
	}
	h.Bins[bins-1].Hi = hi

	for _, s := range scores {
		i := int((s - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Bins[i].Count++
	}
	for _, b := range h.Bins {
		if b.Count > h.MaxCount {
			h.MaxCount = b.Count
		}
	}
	return h
}
