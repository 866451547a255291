package backtester

import (
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
)

// EventKind tags the concrete type carried by an Event.
type EventKind string

const (
	EventMarket EventKind = "MARKET"
	EventSignal EventKind = "SIGNAL"
	EventOrder  EventKind = "ORDER"
	EventFill   EventKind = "FILL"
)

// Event is the tagged-variant envelope the engine's queue moves around.
type Event interface {
	Kind() EventKind
	Time() time.Time
}

// MarketEvent carries one symbol's new bar.
type MarketEvent struct{ Bar strategy.Bar }

func (e MarketEvent) Kind() EventKind { return EventMarket }
func (e MarketEvent) Time() time.Time { return e.Bar.Timestamp }

// SignalEvent carries a strategy's request to open or close a position.
type SignalEvent struct{ Signal strategy.Signal }

func (e SignalEvent) Kind() EventKind { return EventSignal }
func (e SignalEvent) Time() time.Time { return e.Signal.Timestamp }

// OrderEvent carries a sized, risk-checked order awaiting execution.
type OrderEvent struct{ Order strategy.Order }

func (e OrderEvent) Kind() EventKind { return EventOrder }
func (e OrderEvent) Time() time.Time { return e.Order.Timestamp }

// FillEvent carries a completed trade.
type FillEvent struct{ Fill strategy.Fill }

func (e FillEvent) Kind() EventKind { return EventFill }
func (e FillEvent) Time() time.Time { return e.Fill.Timestamp }

// EventQueue is a simple FIFO queue of pending events. A single Market event
// can cascade into any number of Signal/Order/Fill events; the engine drains
// the queue completely before pulling the next Market event off the timeline.
type EventQueue struct {
	events []Event
}

// NewEventQueue creates a new, empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]Event, 0, 16)}
}

// Push adds an event to the back of the queue.
func (q *EventQueue) Push(e Event) { q.events = append(q.events, e) }

// Pop removes and returns the event at the front of the queue, or nil if empty.
func (q *EventQueue) Pop() Event {
	if len(q.events) == 0 {
		return nil
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e
}

// IsEmpty reports whether the queue has no pending events.
func (q *EventQueue) IsEmpty() bool { return len(q.events) == 0 }

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return len(q.events) }
