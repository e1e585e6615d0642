package events

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/aptokit/aptokit/metrics"
	"github.com/aptokit/aptokit/types"
)

var log = logging.Logger("events")

const (
	// DefaultPollInterval is the documented polling cadence.
	DefaultPollInterval = 3 * time.Second

	// fetchLimit caps how many events one subscription consumes per tick.
	fetchLimit = 100
)

// Source fetches events per handle; satisfied by chain.Client.
type Source interface {
	EventsByHandle(ctx context.Context, handle types.EventHandleID, start *uint64, limit int) ([]types.ContractEvent, error)
}

// subscription is owned by the engine's registry. lastSeen only ever
// increases; primed marks that the baseline poll has run, so history from
// before subscription time is never delivered.
type subscription struct {
	id       uuid.UUID
	handle   types.EventHandleID
	callback func(types.ContractEvent)

	primed   bool
	lastSeen *uint64
}

// Engine runs one cooperative polling loop over every live subscription.
// The loop starts lazily on the first Subscribe and stops when the registry
// empties, so an idle engine produces no network traffic.
type Engine struct {
	lk       sync.Mutex
	source   Source
	clock    clock.Clock
	interval time.Duration

	subs   map[uuid.UUID]*subscription
	cancel context.CancelFunc
}

type Option func(*Engine)

// WithClock injects the tick clock for deterministic test control.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		clock:    clock.New(),
		interval: DefaultPollInterval,
		subs:     make(map[uuid.UUID]*subscription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a callback for new events on an
// address::module::EventType handle. Events emitted before subscription time
// are never replayed. The returned id is the unsubscribe handle.
func (e *Engine) Subscribe(eventHandle string, callback func(types.ContractEvent)) (uuid.UUID, error) {
	handle, err := types.ParseEventHandleID(eventHandle)
	if err != nil {
		return uuid.Nil, err
	}
	if callback == nil {
		return uuid.Nil, types.NewError(types.ErrInvalidArgument, "subscription callback is required")
	}

	sub := &subscription{
		id:       uuid.New(),
		handle:   handle,
		callback: callback,
	}

	e.lk.Lock()
	e.subs[sub.id] = sub
	count := len(e.subs)
	if e.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		go e.loop(ctx)
	}
	e.lk.Unlock()

	stats.Record(context.Background(), metrics.SubscriptionNum.M(int64(count)))
	log.Debugw("subscribed", "id", sub.id, "handle", handle.String())
	return sub.id, nil
}

// Unsubscribe removes a subscription and synchronously stops future
// deliveries to it, even if a poll tick is in flight. Unknown ids are a
// no-op.
func (e *Engine) Unsubscribe(id uuid.UUID) {
	e.lk.Lock()
	delete(e.subs, id)
	count := len(e.subs)
	if count == 0 {
		e.stopLocked()
	}
	e.lk.Unlock()

	stats.Record(context.Background(), metrics.SubscriptionNum.M(int64(count)))
}

// UnsubscribeAll clears the registry; bulk teardown for disconnect or
// shutdown.
func (e *Engine) UnsubscribeAll() {
	e.lk.Lock()
	e.subs = make(map[uuid.UUID]*subscription)
	e.stopLocked()
	e.lk.Unlock()

	stats.Record(context.Background(), metrics.SubscriptionNum.M(0))
}

func (e *Engine) SubscriptionCount() int {
	e.lk.Lock()
	defer e.lk.Unlock()
	return len(e.subs)
}

// LastSeen reports the highest delivered sequence for a subscription, false
// while nothing has been delivered yet.
func (e *Engine) LastSeen(id uuid.UUID) (uint64, bool) {
	e.lk.Lock()
	defer e.lk.Unlock()
	sub, ok := e.subs[id]
	if !ok || sub.lastSeen == nil {
		return 0, false
	}
	return *sub.lastSeen, true
}

func (e *Engine) HasSubscription(id uuid.UUID) bool {
	e.lk.Lock()
	defer e.lk.Unlock()
	_, ok := e.subs[id]
	return ok
}

// caller holds e.lk
func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) loop(ctx context.Context) {
	ticker := e.clock.Ticker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce(ctx)
		}
	}
}

func (e *Engine) pollOnce(ctx context.Context) {
	e.lk.Lock()
	snapshot := make([]*subscription, 0, len(e.subs))
	for _, sub := range e.subs {
		snapshot = append(snapshot, sub)
	}
	e.lk.Unlock()

	for _, sub := range snapshot {
		e.pollSubscription(ctx, sub)
	}
}

// pollSubscription fetches one subscription's new events and dispatches
// them. A fetch error skips this tick and keeps the subscription alive; a
// panicking callback is isolated and still counts as delivered.
func (e *Engine) pollSubscription(ctx context.Context, sub *subscription) {
	e.lk.Lock()
	_, live := e.subs[sub.id]
	primed := sub.primed
	lastSeen := sub.lastSeen
	e.lk.Unlock()
	if !live {
		return
	}

	if !primed {
		// baseline poll: record the current head, deliver nothing
		tail, err := e.source.EventsByHandle(ctx, sub.handle, nil, 1)
		if err != nil {
			log.Warnf("baseline poll for %s failed: %s", sub.handle, err)
			return
		}
		e.lk.Lock()
		if _, ok := e.subs[sub.id]; ok {
			sub.primed = true
			if len(tail) > 0 {
				if seq, err := strconv.ParseUint(tail[len(tail)-1].SequenceNumber, 10, 64); err == nil {
					sub.lastSeen = &seq
				}
			}
		}
		e.lk.Unlock()
		return
	}

	start := uint64(0)
	if lastSeen != nil {
		start = *lastSeen + 1
	}
	evs, err := e.source.EventsByHandle(ctx, sub.handle, &start, fetchLimit)
	if err != nil {
		log.Warnf("poll for %s failed, skipping tick: %s", sub.handle, err)
		return
	}
	if len(evs) == 0 {
		return
	}

	// the source may return events out of order within one page; delivery
	// is always in ascending sequence order
	sort.Slice(evs, func(i, j int) bool {
		return eventSeq(evs[i]) < eventSeq(evs[j])
	})

	mctx, _ := tag.New(ctx, tag.Upsert(metrics.EventHandleKey, sub.handle.String()))
	for _, ev := range evs {
		seq := eventSeq(ev)

		e.lk.Lock()
		_, live := e.subs[sub.id]
		if live && sub.lastSeen != nil && seq <= *sub.lastSeen {
			// duplicate within the window, suppressed
			e.lk.Unlock()
			continue
		}
		e.lk.Unlock()
		if !live {
			// unsubscribed mid-tick: discard the rest of this pass
			return
		}

		e.dispatch(sub, ev)
		stats.Record(mctx, metrics.EventsDelivered.M(1))

		e.lk.Lock()
		if _, ok := e.subs[sub.id]; ok {
			if sub.lastSeen == nil || seq > *sub.lastSeen {
				s := seq
				sub.lastSeen = &s
			}
		}
		e.lk.Unlock()
	}
}

// dispatch isolates callback panics so one misbehaving subscriber cannot
// stall the loop or starve other subscriptions.
func (e *Engine) dispatch(sub *subscription, ev types.ContractEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("subscription %s callback panicked on sequence %s: %v", sub.id, ev.SequenceNumber, r)
		}
	}()
	sub.callback(ev)
}

func eventSeq(ev types.ContractEvent) uint64 {
	seq, _ := strconv.ParseUint(ev.SequenceNumber, 10, 64)
	return seq
}
