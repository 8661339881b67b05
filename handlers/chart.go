package handlers

import (
	"math"
	"strconv"

	"nbme-dashboard-go/report"
)

// Layout of the inline SVG histogram, in SVG user units.
const (
	chartWidth   = 640.0
	chartHeight  = 320.0
	chartPadLeft = 48.0
	chartPadBot  = 40.0
	chartPadTop  = 24.0
	chartPadRite = 16.0
)

type chartBar struct {
	X, Y, W, H float64
	Label      string
	Count      int
}

type chartTick struct {
	Pos   float64
	Label string
}

// histogramChart is the geometry the dataset template draws.
type histogramChart struct {
	Width, Height float64
	Left, Right   float64
	Top, Bottom   float64
	Bars          []chartBar
	XTicks        []chartTick
	YTicks        []chartTick
	HasMean       bool
	MeanX         float64
	MeanLabel     string
	Title         string
}

func newHistogramChart(h report.Histogram, testID string) *histogramChart {
	if len(h.Bins) == 0 {
		return nil
	}
	c := &histogramChart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartPadLeft,
		Right:  chartWidth - chartPadRite,
		Top:    chartPadTop,
		Bottom: chartHeight - chartPadBot,
		Title:  testID + " Score Distribution",
	}

	lo, hi := h.Min, h.Max
	if h.Mean != nil {
		lo = math.Min(lo, *h.Mean)
		hi = math.Max(hi, *h.Mean)
	}
	span := hi - lo
	x := func(v float64) float64 { return c.Left + (v-lo)/span*(c.Right-c.Left) }
	maxCount := float64(h.MaxCount)
	if maxCount == 0 {
		maxCount = 1
	}
	y := func(n float64) float64 { return c.Bottom - n/maxCount*(c.Bottom-c.Top) }

	for _, b := range h.Bins {
		top := y(float64(b.Count))
		c.Bars = append(c.Bars, chartBar{
			X:     x(b.Lo),
			Y:     top,
			W:     math.Max(x(b.Hi)-x(b.Lo)-1, 1),
			H:     c.Bottom - top,
			Label: b.Label(),
			Count: b.Count,
		})
	}
	for i := 0; i <= 4; i++ {
		v := lo + span*float64(i)/4
		c.XTicks = append(c.XTicks, chartTick{Pos: x(v), Label: strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)})
	}
	c.YTicks = []chartTick{
		{Pos: y(0), Label: "0"},
		{Pos: y(maxCount), Label: strconv.Itoa(int(maxCount))},
	}
	if h.Mean != nil {
		c.HasMean = true
		c.MeanX = x(*h.Mean)
		c.MeanLabel = "National Mean: " + strconv.FormatFloat(*h.Mean, 'f', -1, 64)
	}
	return c
}
