// Package domain holds the fragment generation types and ports
package domain

import (
	"time"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
)

// Job is one variant's fragment generation across channels
type Job struct {
	RunID     string
	Timestamp string
	Variant   product.Variant
	// Channels limits the run; empty means every channel
	Channels []focalplane.Channel
	// AllowMissing turns a missing input into a skip
	AllowMissing bool
	// Generated is the CHECKSUM comment time shared by every fragment of a run
	Generated time.Time
}

// Status is the outcome of one channel
type Status string

// Channel outcomes
const (
	StatusRunning   Status = "running"
	StatusGenerated Status = "generated"
	StatusReused    Status = "reused"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is the result for one channel
type Outcome struct {
	Channel  focalplane.Channel `json:"channel"`
	Status   Status             `json:"status"`
	Checksum string             `json:"checksum,omitempty"`
	DataSum  string             `json:"datasum,omitempty"`
	Bytes    int64              `json:"bytes"`
	Reason   string             `json:"reason,omitempty"`
}

// Result summarizes a job in channel order
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Count returns how many channels ended with s
func (r Result) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Skipped returns the channels that were skipped
func (r Result) Skipped() []focalplane.Channel {
	var out []focalplane.Channel
	for _, o := range r.Outcomes {
		if o.Status == StatusSkipped {
			out = append(out, o.Channel)
		}
	}
	return out
}

// Record is one row of the fragment ledger
type Record struct {
	Timestamp  string
	Variant    product.Variant
	Channel    focalplane.Channel
	RunID      string
	Status     Status
	Checksum   string
	DataSum    string
	Bytes      int64
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Stats are pixel statistics of one converted fragment
type Stats struct {
	RunID     string
	Timestamp string
	Variant   product.Variant
	Channel   focalplane.Channel
	Width     int
	Height    int
	Min       float64
	Max       float64
	Mean      float64
	NaNCount  uint64
	DataSum   string
	Checksum  string
	Generated time.Time
}
