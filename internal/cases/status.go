package cases

import (
	"strings"
)

// Status is the review state label of a case.
type Status string

const (
	StatusPendingReview          Status = "Pending Review"
	StatusInReview               Status = "In Review"
	StatusAdditionalInfoRequired Status = "Additional Info Required"
	StatusApproved               Status = "Approved"
	StatusRejected               Status = "Rejected"
)

// KnownStatuses lists the labels the review workflow defines, in workflow order.
var KnownStatuses = []Status{
	StatusPendingReview,
	StatusInReview,
	StatusAdditionalInfoRequired,
	StatusApproved,
	StatusRejected,
}

// Known reports whether s is one of KnownStatuses.
func (s Status) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// TransitionTable decides which status changes are legal.
// The zero value and AllowAll permit every change.
type TransitionTable struct {
	edges map[Status]map[Status]struct{}
}

// AllowAll returns a table that accepts any transition, including to labels
// outside KnownStatuses.
func AllowAll() TransitionTable { return TransitionTable{} }

// NewTransitionTable builds a strict table from explicit edges. Transitions not
// listed are rejected, and so are transitions out of statuses that have no entry.
func NewTransitionTable(edges map[Status][]Status) TransitionTable {
	t := TransitionTable{edges: make(map[Status]map[Status]struct{}, len(edges))}
	for from, tos := range edges {
		set := make(map[Status]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		t.edges[from] = set
	}
	return t
}

// ReviewWorkflow is the strict table used when strict transitions are enabled.
func ReviewWorkflow() TransitionTable {
	return NewTransitionTable(map[Status][]Status{
		StatusPendingReview:          {StatusInReview, StatusRejected},
		StatusInReview:               {StatusAdditionalInfoRequired, StatusApproved, StatusRejected},
		StatusAdditionalInfoRequired: {StatusInReview, StatusRejected},
	})
}

// Strict reports whether the table restricts anything.
func (t TransitionTable) Strict() bool { return t.edges != nil }

// Allows reports whether moving from -> to is legal.
func (t TransitionTable) Allows(from, to Status) bool {
	if t.edges == nil {
		return true
	}
	next, ok := t.edges[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Next lists the statuses reachable from s, nil for a permissive table.
func (t TransitionTable) Next(s Status) []Status {
	if t.edges == nil {
		return nil
	}
	var out []Status
	for _, k := range KnownStatuses {
		if _, ok := t.edges[s][k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func normalizeStatus(s Status) Status {
	return Status(strings.TrimSpace(string(s)))
}
