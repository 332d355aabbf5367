// Package queue holds the counter/queue state machine: ticket issuance,
// call-next, recall, waiting counts, and the daily reset.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Dinhtoai1/layso/internal/registry"
	"github.com/Dinhtoai1/layso/internal/store"
	"github.com/Dinhtoai1/layso/internal/ticket"
)

// CallEvent is pushed to display screens on every call and recall.
type CallEvent struct {
	Service  string    `json:"service"`
	Number   string    `json:"number"`
	Display  int       `json:"display"`
	Time     time.Time `json:"time"`
	IsRecall bool      `json:"is_recall"`
}

// Notifier receives call events. Implementations must not block.
type Notifier interface {
	NotifyCall(event CallEvent)
}

type Engine struct {
	store     store.Store
	notifier  Notifier
	recalls   *recallTracker
	freshness time.Duration
	location  *time.Location
	resetDay  *dayCache
	now       func() time.Time
}

type Options struct {
	// RecallWindow is how long a recall is flagged on the latest-calls
	// view. CallFreshness is how long a finished call stays on display
	// after the queue drains.
	RecallWindow  time.Duration
	CallFreshness time.Duration
	Location      *time.Location
	Notifier      Notifier
}

func New(st store.Store, options Options) *Engine {
	recallWindow := options.RecallWindow
	if recallWindow <= 0 {
		recallWindow = 8 * time.Second
	}
	freshness := options.CallFreshness
	if freshness <= 0 {
		freshness = 10 * time.Second
	}
	location := options.Location
	if location == nil {
		location = time.Local
	}
	return &Engine{
		store:     st,
		notifier:  options.Notifier,
		recalls:   newRecallTracker(recallWindow),
		freshness: freshness,
		location:  location,
		resetDay:  &dayCache{},
		now:       time.Now,
	}
}

// Ticket is the result of issuing or calling a number. Message is the
// announcement text read out at the counter, set on call and recall.
type Ticket struct {
	Service  string
	Number   ticket.Number
	Waiting  int
	IsRecall bool
	Message  string
}

// IssueTicket hands out the next number for the service. The raw sequence
// strictly increases by one per call until the daily cap, starting at 1 on
// a fresh or freshly reset record.
func (e *Engine) IssueTicket(ctx context.Context, rawService string) (Ticket, error) {
	desc, err := registry.Resolve(rawService)
	if err != nil {
		return Ticket{}, err
	}
	e.maybeResetDay(ctx)

	sequence, err := e.store.IssueTicket(ctx, desc.Name, e.now().UTC())
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Service: desc.Name, Number: ticket.Encode(desc.Prefix, sequence)}, nil
}

// CallNext advances the called pointer by one and reports how many
// customers remain. This is the only operation that advances it.
func (e *Engine) CallNext(ctx context.Context, rawService string) (Ticket, error) {
	desc, err := registry.Resolve(rawService)
	if err != nil {
		return Ticket{}, err
	}
	e.maybeResetDay(ctx)

	now := e.now().UTC()
	called, issued, err := e.store.CallNext(ctx, desc.Name, desc.Prefix, now)
	if err != nil {
		return Ticket{}, err
	}

	number := ticket.Encode(desc.Prefix, called)
	result := Ticket{
		Service: desc.Name,
		Number:  number,
		Waiting: issued - called,
		Message: fmt.Sprintf("Mời khách hàng số %s đến quầy số %d", number.String(), desc.Prefix),
	}
	e.notify(CallEvent{
		Service: desc.Name,
		Number:  result.Number.String(),
		Display: result.Number.Display(),
		Time:    now,
	})
	return result, nil
}

// RecallLast re-announces the most recently called number. Counts are not
// touched, so repeated recalls return the identical number.
func (e *Engine) RecallLast(ctx context.Context, rawService string) (Ticket, error) {
	desc, err := registry.Resolve(rawService)
	if err != nil {
		return Ticket{}, err
	}

	now := e.now().UTC()
	called, err := e.store.RecallLast(ctx, desc.Name, desc.Prefix, now)
	if err != nil {
		return Ticket{}, err
	}
	e.recalls.Mark(desc.Name, now)

	number := ticket.Encode(desc.Prefix, called)
	result := Ticket{
		Service:  desc.Name,
		Number:   number,
		IsRecall: true,
		Message:  fmt.Sprintf("Mời lại khách hàng số %s đến quầy số %d", number.String(), desc.Prefix),
	}
	e.notify(CallEvent{
		Service:  desc.Name,
		Number:   result.Number.String(),
		Display:  result.Number.Display(),
		Time:     now,
		IsRecall: true,
	})
	return result, nil
}

// WaitingCount tolerates a missing record, treating it as an empty queue.
func (e *Engine) WaitingCount(ctx context.Context, rawService string) (int, error) {
	desc, err := registry.Resolve(rawService)
	if err != nil {
		return 0, err
	}
	record, found, err := e.store.GetCounter(ctx, desc.Name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return waiting(record), nil
}

// ServiceStatus is one row of the waiting/status listing.
type ServiceStatus struct {
	Service    string `json:"service"`
	Waiting    int    `json:"waiting"`
	LastCalled string `json:"last_called,omitempty"`
}

// Status lists waiting counts per service; rawService narrows it to one
// service when non-empty.
func (e *Engine) Status(ctx context.Context, rawService string) ([]ServiceStatus, error) {
	descriptors := registry.All()
	if rawService != "" {
		desc, err := registry.Resolve(rawService)
		if err != nil {
			return nil, err
		}
		descriptors = []registry.Descriptor{desc}
	}

	statuses := make([]ServiceStatus, 0, len(descriptors))
	for _, desc := range descriptors {
		record, found, err := e.store.GetCounter(ctx, desc.Name)
		if err != nil {
			return nil, err
		}
		status := ServiceStatus{Service: desc.Name}
		if found {
			status.Waiting = waiting(record)
			if record.CalledCount > 0 {
				status.LastCalled = ticket.Encode(desc.Prefix, record.CalledCount).String()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// LatestCall is what a display screen shows for one service, nil when
// nothing is currently calling.
type LatestCall struct {
	Number   string    `json:"number"`
	Display  int       `json:"display"`
	Time     time.Time `json:"time"`
	IsRecall bool      `json:"is_recall"`
}

// CurrentCalling reports the last-called number per service, but only while
// someone is still waiting or the call is fresh. A drained queue drops off
// the screens after the freshness window instead of lingering forever.
func (e *Engine) CurrentCalling(ctx context.Context) (map[string]*LatestCall, error) {
	now := e.now().UTC()
	calls := make(map[string]*LatestCall, len(registry.All()))
	for _, desc := range registry.All() {
		calls[desc.Name] = nil
		record, found, err := e.store.GetCounter(ctx, desc.Name)
		if err != nil {
			return nil, err
		}
		if !found || record.CalledCount == 0 {
			continue
		}
		if waiting(record) == 0 && now.Sub(record.LastUpdated) > e.freshness {
			continue
		}
		number := ticket.Encode(desc.Prefix, record.CalledCount)
		calls[desc.Name] = &LatestCall{
			Number:   number.String(),
			Display:  number.Display(),
			Time:     record.LastUpdated,
			IsRecall: e.recalls.IsRecent(desc.Name, now),
		}
	}
	return calls, nil
}

// ResetCounters zeroes every counter immediately. History and ratings
// survive.
func (e *Engine) ResetCounters(ctx context.Context) error {
	return e.store.ResetAll(ctx, e.now().UTC())
}

// WipeCounters deletes all counter records and recreates one empty record
// per canonical service. The confirmation gate lives at the HTTP boundary.
func (e *Engine) WipeCounters(ctx context.Context) error {
	return e.store.WipeAll(ctx, registry.Names(), e.now().UTC())
}

func (e *Engine) notify(event CallEvent) {
	if e.notifier != nil {
		e.notifier.NotifyCall(event)
	}
}

func waiting(record store.CounterRecord) int {
	count := record.IssuedCount - record.CalledCount
	if count < 0 {
		return 0
	}
	return count
}
