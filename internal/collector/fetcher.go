package collector

import (
	"context"
	"time"
)

// Bar is one daily close.
type Bar struct {
	Time  time.Time
	Close float64
}

// Fetcher defines the interface for fetching daily closing prices.
type Fetcher interface {
	// FetchDailyCloses returns bars between start and end inclusive, oldest first.
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
	Name() string
}
