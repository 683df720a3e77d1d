package order

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nortsur/pedidos/internal/apperror"
)

// TransitionError reports a status change the lifecycle does not permit.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == apperror.ErrConflict
}

// Lifecycle is an immutable status enumeration plus transition table.
type Lifecycle struct {
	statuses    []Status
	transitions map[Status][]Status
}

// NewLifecycle validates and copies the given table. Every status must have an
// entry in transitions, even when it has no outgoing edges.
func NewLifecycle(statuses []Status, transitions map[Status][]Status) (*Lifecycle, error) {
	known := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		known[s] = true
	}

	table := make(map[Status][]Status, len(statuses))
	for _, from := range statuses {
		dests, ok := transitions[from]
		if !ok {
			return nil, fmt.Errorf("order: status %s has no transition entry", from)
		}
		for _, to := range dests {
			if !known[to] {
				return nil, fmt.Errorf("order: transition %s -> %s targets unknown status", from, to)
			}
		}
		sorted := slices.Clone(dests)
		slices.Sort(sorted)
		table[from] = sorted
	}
	for from := range transitions {
		if !known[from] {
			return nil, fmt.Errorf("order: transition source %s is not a known status", from)
		}
	}

	return &Lifecycle{statuses: slices.Clone(statuses), transitions: table}, nil
}

var defaultLifecycle = mustLifecycle(
	[]Status{StatusNew, StatusConfirmed, StatusDelivered, StatusCancelled},
	map[Status][]Status{
		StatusNew:       {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusDelivered, StatusCancelled},
		StatusDelivered: {},
		StatusCancelled: {StatusNew},
	},
)

func mustLifecycle(statuses []Status, transitions map[Status][]Status) *Lifecycle {
	l, err := NewLifecycle(statuses, transitions)
	if err != nil {
		panic(err)
	}
	return l
}

// DefaultLifecycle returns the order lifecycle used by the service.
func DefaultLifecycle() *Lifecycle {
	return defaultLifecycle
}

func (l *Lifecycle) Statuses() []Status {
	return slices.Clone(l.statuses)
}

// Allowed returns the sorted destinations reachable from from.
func (l *Lifecycle) Allowed(from Status) []Status {
	return slices.Clone(l.transitions[from])
}

func (l *Lifecycle) Table() map[Status][]Status {
	out := make(map[Status][]Status, len(l.transitions))
	for from, dests := range l.transitions {
		out[from] = slices.Clone(dests)
	}
	return out
}

func (l *Lifecycle) known(s Status) bool {
	return slices.Contains(l.statuses, s)
}

// Parse trims and upper-cases raw, maps the legacy "pendiente" to NUEVO and
// rejects anything outside the enumeration.
func (l *Lifecycle) Parse(raw string) (Status, error) {
	s := Normalize(raw)
	if !l.known(s) {
		names := make([]string, len(l.statuses))
		for i, st := range l.statuses {
			names[i] = string(st)
		}
		return "", apperror.InvalidArgument("invalid status %q; valid: %s", strings.TrimSpace(raw), strings.Join(names, ", "))
	}
	return s, nil
}

// Check returns a *TransitionError unless from -> to is in the table.
func (l *Lifecycle) Check(from, to Status) error {
	if slices.Contains(l.transitions[from], to) {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: l.Allowed(from)}
}

// Normalize is the lenient form used for stored values and filters.
func Normalize(raw string) Status {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, legacyPending) {
		return StatusNew
	}
	return Status(strings.ToUpper(s))
}
