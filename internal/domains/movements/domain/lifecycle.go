package domain

import (
	"fmt"
	"slices"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusFulfilled Status = "FULFILLED"
	StatusCancelled Status = "CANCELLED"
)

// lifecycle lists the allowed successors of every status. Terminal statuses have none.
var lifecycle = map[Status][]Status{
	StatusPending:   {StatusFulfilled, StatusCancelled},
	StatusFulfilled: nil,
	StatusCancelled: nil,
}

// Known reports whether the status is part of the lifecycle.
func (s Status) Known() bool {
	_, ok := lifecycle[s]
	return ok
}

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool {
	return s.Known() && len(lifecycle[s]) == 0
}

// CanTransitionTo reports whether next is an allowed successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(lifecycle[s], next)
}

// Transition validates a status change and returns the new status.
func Transition(from, to Status) (Status, error) {
	if !from.CanTransitionTo(to) {
		return from, invdomain.NewInvalidCommand(fmt.Sprintf("order cannot move from %s to %s", from, to))
	}
	return to, nil
}
