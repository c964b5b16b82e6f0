package model

import "time"

// PriceObservation is one daily close of a ticker within a category.
type PriceObservation struct {
	Date     time.Time
	Ticker   string
	Category string
	Close    float64
}

// SeriesKey identifies one price series.
type SeriesKey struct {
	Category string
	Ticker   string
}

func (k SeriesKey) String() string { return k.Category + "/" + k.Ticker }

// PriceSeries holds the date-ascending observations of one (category, ticker) pair.
type PriceSeries struct {
	Key          SeriesKey
	Observations []PriceObservation
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Observations) }

// Closes extracts the close prices in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		closes[i] = o.Close
	}
	return closes
}

// ReturnSeries is a sequence of simple returns, one shorter than its source PriceSeries.
type ReturnSeries []float64
