package domain

import (
	perr "ffiassembler/internal/platform/errors"
)

// State is a fragment's position in the generation protocol
type State uint8

// States in the only order they may be taken
const (
	Idle State = iota
	MetadataResolved
	PhysicsComputed
	HeaderDraftWritten
	Finalized
)

var stateNames = [...]string{"idle", "metadata_resolved", "physics_computed", "header_draft_written", "finalized"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Machine tracks one fragment; the zero value is Idle
type Machine struct{ s State }

// State returns the current state
func (m *Machine) State() State { return m.s }

// Advance moves to next, which must directly follow the current state
func (m *Machine) Advance(next State) error {
	if next != m.s+1 || next > Finalized {
		return perr.Contractf("fragment state %s cannot move to %s", m.s, next)
	}
	m.s = next
	return nil
}

// Require checks the machine is at s before a step that needs it
func (m *Machine) Require(s State) error {
	if m.s != s {
		return perr.Contractf("fragment step needs state %s, at %s", s, m.s)
	}
	return nil
}
