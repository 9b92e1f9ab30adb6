package fsm

import "tradeflow/internal/types"

// IdeaMachine returns the strict review-pipeline machine for ideas.
// SCHEDULED and CANCELLED are terminal; CANCELLED is reachable from any
// non-terminal state as a shortcut.
func IdeaMachine() *Machine[types.IdeaStatus] {
	return New(Table[types.IdeaStatus]{
		types.IdeaNew:         {types.IdeaNeedsReview, types.IdeaCancelled},
		types.IdeaNeedsReview: {types.IdeaReadyForQA, types.IdeaCancelled},
		types.IdeaReadyForQA:  {types.IdeaApproved, types.IdeaCancelled},
		types.IdeaApproved:    {types.IdeaScheduled, types.IdeaCancelled},
	}).WithCancel(types.IdeaCancelled)
}

// OrderMachine returns the lenient order-lifecycle machine. The table below
// documents the intended path; enforcement stays off because the scheduler
// force-sets states on this path.
func OrderMachine() *Machine[types.OrderStatus] {
	return NewLenient(Table[types.OrderStatus]{
		types.OrderNew:       {types.OrderScheduled},
		types.OrderScheduled: {types.OrderExecuting},
		types.OrderExecuting: {types.OrderClosed, types.OrderFailed},
	})
}
