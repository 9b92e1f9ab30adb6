// Package fsm provides a small transition-table state machine shared by the
// idea and order lifecycles.
package fsm

import "fmt"

// IllegalTransitionError is returned when a transition is not in the table.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// Table maps a state to the states reachable from it. States absent from the
// table are terminal.
type Table[S ~string] map[S][]S

// Machine validates transitions against a Table.
type Machine[S ~string] struct {
	table Table[S]

	// Lenient disables table enforcement entirely: any state may be
	// force-set. The order lifecycle runs lenient because the scheduler
	// owns every transition on that path.
	Lenient bool

	// CancelState, when set, is reachable from any non-terminal state
	// without a table entry.
	CancelState S
	hasCancel   bool
}

// New builds a strict machine over the given table.
func New[S ~string](table Table[S]) *Machine[S] {
	return &Machine[S]{table: table}
}

// NewLenient builds a machine that accepts every transition.
func NewLenient[S ~string](table Table[S]) *Machine[S] {
	return &Machine[S]{table: table, Lenient: true}
}

// WithCancel marks cancel as a shortcut state reachable from any
// non-terminal state.
func (m *Machine[S]) WithCancel(cancel S) *Machine[S] {
	m.CancelState = cancel
	m.hasCancel = true
	return m
}

// Terminal reports whether no transition leaves the given state.
func (m *Machine[S]) Terminal(s S) bool {
	return len(m.table[s]) == 0
}

// CanTransition reports whether from -> to is allowed.
func (m *Machine[S]) CanTransition(from, to S) bool {
	if m.Lenient {
		return true
	}
	if m.hasCancel && to == m.CancelState {
		return !m.Terminal(from)
	}
	for _, next := range m.table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to, returning *IllegalTransitionError when the
// move is not allowed.
func (m *Machine[S]) Transition(from, to S) error {
	if !m.CanTransition(from, to) {
		return &IllegalTransitionError{From: string(from), To: string(to)}
	}
	return nil
}
