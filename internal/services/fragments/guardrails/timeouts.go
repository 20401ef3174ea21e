// Package guardrails bounds each stage of one channel's fragment generation
package guardrails

import (
	"context"
	"time"
)

// Stage is one step of a channel task
type Stage uint8

const (
	StageChannel Stage = iota // one attempt at the whole task
	StageRead                 // reading the raw input blob
	StageWrite                // persisting the finished fragment
	StageLedger               // each fragment ledger transaction
)

var stageNames = [...]string{"channel", "read", "write", "ledger"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "stage(?)"
}

// Timeouts are per-stage budgets; zero leaves a stage unbounded
type Timeouts struct {
	Channel time.Duration
	Read    time.Duration
	Write   time.Duration
	DB      time.Duration
}

func (t Timeouts) budget(s Stage) time.Duration {
	switch s {
	case StageChannel:
		return t.Channel
	case StageRead:
		return t.Read
	case StageWrite:
		return t.Write
	case StageLedger:
		return t.DB
	}
	return 0
}

// Bound derives a context for stage s; a tighter parent deadline still wins
func (t Timeouts) Bound(parent context.Context, s Stage) (context.Context, context.CancelFunc) {
	if d := t.budget(s); d > 0 {
		return context.WithTimeout(parent, d)
	}
	return context.WithCancel(parent)
}
