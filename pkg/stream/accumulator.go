package stream

import (
	"strings"
	"time"
)

// Stats describes how a stream was consumed.
type Stats struct {
	Frames     int
	Deltas     int
	Skipped    int
	StartTime  time.Time
	LastUpdate time.Time
}

// Accumulator builds the full text of a response from content deltas.
type Accumulator struct {
	content strings.Builder
	stats   Stats
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	now := time.Now()
	return &Accumulator{stats: Stats{StartTime: now, LastUpdate: now}}
}

// Add appends a delta and returns the full text so far.
func (a *Accumulator) Add(delta string) string {
	a.content.WriteString(delta)
	a.stats.Frames++
	a.stats.Deltas++
	a.stats.LastUpdate = time.Now()
	return a.content.String()
}

// Skip records a frame that carried no usable delta.
func (a *Accumulator) Skip() {
	a.stats.Frames++
	a.stats.Skipped++
}

// Content returns the accumulated text
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Stats returns a copy of the consumption counters
func (a *Accumulator) Stats() Stats {
	return a.stats
}
