package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aptokit/aptokit/events"
	"github.com/aptokit/aptokit/testhelper"
	"github.com/aptokit/aptokit/types"
)

const handle = "0x42::marketplace::ListingEvent"

func handleID(t *testing.T) types.EventHandleID {
	t.Helper()
	h, err := types.ParseEventHandleID(handle)
	require.NoError(t, err)
	return h
}

func event(seq string) types.ContractEvent {
	return types.ContractEvent{
		Type:           handle,
		SequenceNumber: seq,
		Data:           map[string]interface{}{"seq": seq},
	}
}

// collector gathers delivered events across goroutines.
type collector struct {
	lk   sync.Mutex
	seqs []string
}

func (c *collector) add(ev types.ContractEvent) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.seqs = append(c.seqs, ev.SequenceNumber)
}

func (c *collector) got() []string {
	c.lk.Lock()
	defer c.lk.Unlock()
	out := make([]string, len(c.seqs))
	copy(out, c.seqs)
	return out
}

// tick advances the mock clock one poll interval and yields to the loop.
// The sleep before Add lets a freshly started loop goroutine register its
// ticker so the advance is not lost.
func tick(mock *clock.Mock) {
	time.Sleep(5 * time.Millisecond)
	mock.Add(events.DefaultPollInterval)
	time.Sleep(5 * time.Millisecond)
}

func setupEngine(t *testing.T) (*events.Engine, *testhelper.MemChain, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	memChain := testhelper.NewMemChain()
	engine := events.NewEngine(memChain, events.WithClock(mock))
	t.Cleanup(engine.UnsubscribeAll)
	return engine, memChain, mock
}

func TestSubscribeValidation(t *testing.T) {
	engine, _, _ := setupEngine(t)

	_, err := engine.Subscribe("not-a-handle", func(types.ContractEvent) {})
	require.Error(t, err)
	require.Equal(t, types.ErrInvalidEventHandle, types.CodeOf(err))
	require.Equal(t, 0, engine.SubscriptionCount())

	var se *types.SDKError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "address::module::EventType", se.Detail("expected_format"))

	_, err = engine.Subscribe(handle, nil)
	require.Error(t, err)
	require.Equal(t, 0, engine.SubscriptionCount())
}

func TestOutOfOrderDelivery(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	id, err := engine.Subscribe(handle, c.add)
	require.NoError(t, err)
	require.True(t, engine.HasSubscription(id))

	tick(mock) // baseline pass, nothing to deliver

	// one poll pass sees [3,1,2]; delivery must be ascending
	memChain.AppendEvents(handleID(t), event("3"), event("1"), event("2"))
	tick(mock)

	require.Eventually(t, func() bool { return len(c.got()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"1", "2", "3"}, c.got())

	last, ok := engine.LastSeen(id)
	require.True(t, ok)
	require.Equal(t, uint64(3), last)
}

func TestNoHistoricalReplay(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	// events existing before subscription time must never be delivered
	memChain.AppendEvents(handleID(t), event("0"), event("1"), event("2"))

	id, err := engine.Subscribe(handle, c.add)
	require.NoError(t, err)

	tick(mock) // baseline at sequence 2
	tick(mock)
	require.Empty(t, c.got())

	memChain.AppendEvents(handleID(t), event("3"))
	tick(mock)

	require.Eventually(t, func() bool { return len(c.got()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"3"}, c.got())

	last, _ := engine.LastSeen(id)
	require.Equal(t, uint64(3), last)
}

func TestDuplicateSuppression(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	_, err := engine.Subscribe(handle, c.add)
	require.NoError(t, err)
	tick(mock) // baseline

	memChain.AppendEvents(handleID(t), event("0"), event("1"))
	tick(mock)
	require.Eventually(t, func() bool { return len(c.got()) == 2 }, time.Second, 5*time.Millisecond)

	// nothing new: further ticks must not redeliver
	tick(mock)
	tick(mock)
	require.Equal(t, []string{"0", "1"}, c.got())
}

func TestPanickingCallbackIsolated(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	_, err := engine.Subscribe(handle, func(ev types.ContractEvent) {
		if ev.SequenceNumber == "1" {
			panic("subscriber bug")
		}
		c.add(ev)
	})
	require.NoError(t, err)

	other := &collector{}
	_, err = engine.Subscribe("0x42::marketplace::SaleEvent", other.add)
	require.NoError(t, err)

	tick(mock) // baseline

	memChain.AppendEvents(handleID(t), event("0"), event("1"), event("2"))
	tick(mock)

	// sequences 0 and 2 still arrive; the panic on 1 is swallowed
	require.Eventually(t, func() bool { return len(c.got()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"0", "2"}, c.got())

	// the loop survives for future ticks
	memChain.AppendEvents(handleID(t), event("3"))
	tick(mock)
	require.Eventually(t, func() bool { return len(c.got()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestFetchErrorSkipsTickKeepsSubscription(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	id, err := engine.Subscribe(handle, c.add)
	require.NoError(t, err)
	tick(mock) // baseline

	memChain.SetFailEvents(types.NewError(types.ErrNetwork, "boom"))
	tick(mock)
	require.True(t, engine.HasSubscription(id))
	require.Empty(t, c.got())

	memChain.SetFailEvents(nil)
	memChain.AppendEvents(handleID(t), event("0"))
	tick(mock)
	require.Eventually(t, func() bool { return len(c.got()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	id, err := engine.Subscribe(handle, c.add)
	require.NoError(t, err)
	require.Equal(t, 1, engine.SubscriptionCount())

	// count reflects removal synchronously
	engine.Unsubscribe(id)
	require.Equal(t, 0, engine.SubscriptionCount())
	require.False(t, engine.HasSubscription(id))

	// unknown id is a no-op
	engine.Unsubscribe(uuid.New())

	// removed subscription receives nothing
	memChain.AppendEvents(handleID(t), event("0"))
	tick(mock)
	tick(mock)
	require.Empty(t, c.got())
}

func TestUnsubscribeDuringInFlightTick(t *testing.T) {
	engine, memChain, mock := setupEngine(t)
	c := &collector{}

	var id uuid.UUID
	var once sync.Once
	id, err := engine.Subscribe(handle, func(ev types.ContractEvent) {
		c.add(ev)
		// removing ourselves mid-pass must discard the rest of the pass
		once.Do(func() { engine.Unsubscribe(id) })
	})
	require.NoError(t, err)

	tick(mock) // baseline
	memChain.AppendEvents(handleID(t), event("0"), event("1"), event("2"))
	tick(mock)

	require.Eventually(t, func() bool { return engine.SubscriptionCount() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []string{"0"}, c.got())
}

func TestLazyStartStop(t *testing.T) {
	engine, memChain, mock := setupEngine(t)

	// no subscription: ticks trigger no fetches
	tick(mock)
	tick(mock)
	require.Equal(t, 0, memChain.EventCalls())

	id, err := engine.Subscribe(handle, func(types.ContractEvent) {})
	require.NoError(t, err)
	tick(mock)
	require.Eventually(t, func() bool { return memChain.EventCalls() > 0 }, time.Second, 5*time.Millisecond)

	// registry empty again: the loop stops and network traffic ceases
	engine.Unsubscribe(id)
	calls := memChain.EventCalls()
	tick(mock)
	tick(mock)
	require.Equal(t, calls, memChain.EventCalls())
}

func TestUnsubscribeAll(t *testing.T) {
	engine, _, _ := setupEngine(t)

	_, err := engine.Subscribe(handle, func(types.ContractEvent) {})
	require.NoError(t, err)
	_, err = engine.Subscribe("0x42::marketplace::SaleEvent", func(types.ContractEvent) {})
	require.NoError(t, err)
	require.Equal(t, 2, engine.SubscriptionCount())

	engine.UnsubscribeAll()
	require.Equal(t, 0, engine.SubscriptionCount())
}
