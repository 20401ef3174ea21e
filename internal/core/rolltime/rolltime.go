// Package rolltime maps observation times to the spacecraft roll period
// (season, quarter and campaign) they fall in
package rolltime

import (
	"sort"

	perr "ffiassembler/internal/platform/errors"
)

// Unknown marks a time outside every known roll period
const Unknown = -1

// Entry starts a roll period at MJD
type Entry struct {
	MJD      float64 `json:"mjd" yaml:"mjd"`
	Season   int     `json:"season" yaml:"season"`
	Quarter  int     `json:"quarter" yaml:"quarter"`
	Campaign int     `json:"campaign" yaml:"campaign"`
}

// Period identifies one roll period
type Period struct {
	Season   int
	Quarter  int
	Campaign int
}

// ReportedQuarter applies the archive convention that an unknown quarter is reported as 0
func (p Period) ReportedQuarter() int {
	if p.Quarter == Unknown {
		return 0
	}
	return p.Quarter
}

// Model answers roll period lookups from a table of roll times
type Model struct {
	entries []Entry
}

// New sorts entries by start time; duplicate start times are rejected
func New(entries []Entry) (Model, error) {
	es := append([]Entry(nil), entries...)
	sort.Slice(es, func(i, j int) bool { return es[i].MJD < es[j].MJD })
	for i := 1; i < len(es); i++ {
		if es[i].MJD == es[i-1].MJD {
			return Model{}, perr.Conflictf("two roll periods start at MJD %.6f", es[i].MJD)
		}
	}
	return Model{entries: es}, nil
}

// At returns the period containing mjd; times before the first roll are Unknown
func (m Model) At(mjd float64) Period {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].MJD > mjd })
	if i == 0 {
		return Period{Season: Unknown, Quarter: Unknown, Campaign: Unknown}
	}
	e := m.entries[i-1]
	return Period{Season: e.Season, Quarter: e.Quarter, Campaign: e.Campaign}
}

// Season returns the season index containing mjd
func (m Model) Season(mjd float64) int { return m.At(mjd).Season }

// Interval returns the single period covering [start, end]
// A roll boundary inside the interval is fatal for the caller
func (m Model) Interval(start, end float64) (Period, error) {
	a, b := m.At(start), m.At(end)
	if a != b {
		return Period{}, perr.Mismatchf(
			"interval %.8f-%.8f spans roll periods (season %d/%d, quarter %d/%d, campaign %d/%d)",
			start, end, a.Season, b.Season, a.Quarter, b.Quarter, a.Campaign, b.Campaign,
		)
	}
	return a, nil
}
