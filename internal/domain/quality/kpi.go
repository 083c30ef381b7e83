package quality

import "math"

// Counters are the accumulated quantities of one production summary key.
type Counters struct {
	Total         int64
	Good          int64
	Rework        int64
	Scrap         int64
	ReworkGood    int64
	ReworkScrap   int64
	ReworkPending int64
}

// Add returns the element-wise sum; it is the in-memory twin of the accumulate upsert.
func (c Counters) Add(delta Counters) Counters {
	return Counters{
		Total:         c.Total + delta.Total,
		Good:          c.Good + delta.Good,
		Rework:        c.Rework + delta.Rework,
		Scrap:         c.Scrap + delta.Scrap,
		ReworkGood:    c.ReworkGood + delta.ReworkGood,
		ReworkScrap:   c.ReworkScrap + delta.ReworkScrap,
		ReworkPending: c.ReworkPending + delta.ReworkPending,
	}
}

func (c Counters) FinalGood() int64   { return c.Good + c.ReworkGood }
func (c Counters) FinalReject() int64 { return c.Scrap + c.ReworkScrap }

func (c Counters) GoodPct() float64   { return Percent(c.FinalGood(), c.Total) }
func (c Counters) RejectPct() float64 { return Percent(c.FinalReject(), c.Total) }
func (c Counters) ReworkPct() float64 { return Percent(c.Rework, c.Total) }
func (c Counters) ScrapPct() float64  { return Percent(c.Scrap, c.Total) }

// FirstPassYield is good units over total, without rework recovery.
func (c Counters) FirstPassYield() float64 { return Percent(c.Good, c.Total) }

// HasNegative reports whether any counter is below zero.
func (c Counters) HasNegative() bool {
	return c.Total < 0 || c.Good < 0 || c.Rework < 0 || c.Scrap < 0 ||
		c.ReworkGood < 0 || c.ReworkScrap < 0 || c.ReworkPending < 0
}

// Percent returns part/whole*100 rounded to two decimals. A non-positive whole yields 0.
func Percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return Round(float64(part)*100/float64(whole), 2)
}

// PPM returns parts per million. A non-positive whole yields 0.
func PPM(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return Round(float64(part)*1_000_000/float64(whole), 2)
}

func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
