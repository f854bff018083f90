package reorder

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, persister Persister, opts Options) (*Controller, *fakeNotifier) {
	t.Helper()
	store, err := NewStore(newTopics(5))
	require.NoError(t, err)
	notifier := new(fakeNotifier)
	opts.ContainerID = "subject-1"
	opts.ItemHeight = 130
	opts.MinDragDistance = 10
	if opts.Clock == nil {
		opts.Clock = clockwork.NewFakeClock()
	}
	c, err := NewController(store, persister, notifier, opts)
	require.NoError(t, err)
	return c, notifier
}

func TestNewController(t *testing.T) {
	store, _ := NewStore(newTopics(2))
	for _, h := range []float64{0, -1} {
		if _, err := NewController(store, new(fakePersister), new(fakeNotifier), Options{ItemHeight: h}); err == nil {
			t.Errorf("NewController(ItemHeight: %v): want error", h)
		}
	}
}

func TestController_dragDownCommitted(t *testing.T) {
	persister := &fakePersister{resp: Response{Success: true}}
	c, notifier := newController(t, persister, Options{})

	require.True(t, c.Begin(3))
	require.True(t, c.Move(0, 260))
	s, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, 4, s.HoveredIndex)

	out := <-c.End()
	assert.Equal(t, ResultCommitted, out.Result)
	assert.Equal(t, "T1,T2,T3,T5,T4", idsOf(c.Store().Items()))
	assertContiguous(t, c.Store().Items())
	assert.Equal(t, Idle, c.State())

	assert.Equal(t, []persistCall{{containerID: "subject-1", itemID: "T4", position: 5}}, persister.all())
	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].success)
	assert.Equal(t, "T4 moved to position 5", sent[0].message)
}

func TestController_dragDownRejected(t *testing.T) {
	persister := &fakePersister{resp: Response{Success: false, Message: "conflict"}}
	c, notifier := newController(t, persister, Options{})

	c.Begin(3)
	c.Move(0, 260)
	out := <-c.End()
	assert.Equal(t, ResultRolledBack, out.Result)
	assert.Equal(t, newTopics(5), c.Store().Items())

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.False(t, sent[0].success)
	assert.Contains(t, sent[0].message, "conflict")
}

func TestController_firstItemDraggedUp(t *testing.T) {
	persister := new(fakePersister)
	c, notifier := newController(t, persister, Options{})

	require.True(t, c.Begin(0))
	require.True(t, c.Move(0, -200))
	s, _ := c.Session()
	assert.Equal(t, 0, s.HoveredIndex)
	assert.Equal(t, 0.0, c.Frame().Items[0].Offset)

	out := <-c.End()
	assert.Equal(t, ResultNoop, out.Result)
	assert.Equal(t, newTopics(5), c.Store().Items())
	assert.Empty(t, persister.all())
	assert.Empty(t, notifier.all())
	assert.Equal(t, Idle, c.State())
}

func TestController_secondBeginIgnored(t *testing.T) {
	c, _ := newController(t, new(fakePersister), Options{})

	require.True(t, c.Begin(2))
	assert.False(t, c.Begin(4))
	require.True(t, c.Move(0, 20))
	assert.False(t, c.Begin(4))

	s, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, 2, s.StartIndex)
	assert.Equal(t, "T3", s.ActiveItemID)
}

func TestController_Begin_invalidIndex(t *testing.T) {
	c, _ := newController(t, new(fakePersister), Options{})
	assert.False(t, c.Begin(-1))
	assert.False(t, c.Begin(5))
	assert.Equal(t, Idle, c.State())
}

func TestController_gestureConflict(t *testing.T) {
	persister := new(fakePersister)
	var started []Item
	c, notifier := newController(t, persister, Options{
		Feedback: FeedbackFunc(func(it Item) { started = append(started, it) }),
	})

	require.True(t, c.Begin(2))
	assert.False(t, c.Move(30, 20), "mostly horizontal")
	assert.False(t, c.Move(0, 5), "below threshold")
	assert.False(t, c.Move(-10, 10), "diagonal")
	assert.Equal(t, Armed, c.State())
	_, ok := c.Session()
	assert.False(t, ok)
	assert.Empty(t, started)
	assert.True(t, c.Animator().Settled())

	out := <-c.End()
	assert.Equal(t, ResultNoop, out.Result)
	assert.Equal(t, newTopics(5), c.Store().Items())
	assert.Empty(t, persister.all())
	assert.Empty(t, notifier.all())
	assert.Equal(t, Idle, c.State())
}

func TestController_feedbackOnConfirmedDrag(t *testing.T) {
	var started []Item
	c, _ := newController(t, new(fakePersister), Options{
		Feedback: FeedbackFunc(func(it Item) { started = append(started, it) }),
	})

	c.Begin(1)
	c.Move(0, 3)
	c.Move(0, 40)
	c.Move(0, 90)
	c.Move(5, 200)
	require.Len(t, started, 1)
	assert.Equal(t, "T2", started[0].ID)
}

func TestController_exclusiveWhileCommitting(t *testing.T) {
	persister := &fakePersister{
		resp:    Response{Success: true},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, notifier := newController(t, persister, Options{})

	c.Begin(3)
	c.Move(0, 260)
	done := c.End()
	<-persister.started

	assert.Equal(t, Committing, c.State())
	// optimistic order is already visible
	assert.Equal(t, "T1,T2,T3,T5,T4", idsOf(c.Store().Items()))

	before := c.Store().Items()
	assert.False(t, c.Begin(0))
	assert.False(t, c.Move(0, 300))
	assert.False(t, c.Cancel())
	assert.Equal(t, ErrBusy, c.Replace(newTopics(2)))
	dup := <-c.End()
	assert.Equal(t, ResultIgnored, dup.Result)
	assert.Equal(t, before, c.Store().Items())
	_, ok := c.Session()
	assert.False(t, ok)

	close(persister.block)
	out := <-done
	assert.Equal(t, ResultCommitted, out.Result)
	assert.Len(t, persister.all(), 1)
	assert.Len(t, notifier.all(), 1)
	assert.Equal(t, Idle, c.State())

	_, open := <-done
	assert.False(t, open, "outcome channel is closed after its value")

	assert.True(t, c.Begin(0))
}

func TestController_timeoutRollsBack(t *testing.T) {
	clock := clockwork.NewFakeClock()
	persister := &fakePersister{resp: Response{Success: true}, block: make(chan struct{})}
	c, notifier := newController(t, persister, Options{Clock: clock, CommitTimeout: 2 * time.Second})

	c.Begin(3)
	c.Move(0, 260)
	done := c.End()

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	out := <-done
	assert.Equal(t, ResultRolledBack, out.Result)
	assert.Equal(t, ErrTimeout, errors.Cause(out.Err))
	assert.Equal(t, newTopics(5), c.Store().Items())
	assert.Equal(t, Idle, c.State())
	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.False(t, sent[0].success)
}

func TestController_EndWhenIdle(t *testing.T) {
	c, notifier := newController(t, new(fakePersister), Options{})
	out := <-c.End()
	assert.Equal(t, ResultIgnored, out.Result)
	assert.Empty(t, notifier.all())
}

func TestController_Cancel(t *testing.T) {
	persister := new(fakePersister)
	c, notifier := newController(t, persister, Options{})

	assert.False(t, c.Cancel())

	c.Begin(1)
	c.Move(0, 300)
	require.True(t, c.Cancel())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, newTopics(5), c.Store().Items())
	assert.True(t, c.Animator().Settled())
	assert.Empty(t, persister.all())
	assert.Empty(t, notifier.all())
}

func TestController_Frame(t *testing.T) {
	c, _ := newController(t, new(fakePersister), Options{})

	frame := c.Frame()
	assert.Equal(t, Idle, frame.State)
	require.Len(t, frame.Items, 5)
	for _, fi := range frame.Items {
		assert.Zero(t, fi.Offset)
		assert.False(t, fi.Active)
	}

	// T2 dragged over T3
	c.Begin(1)
	c.Move(0, 140)
	frame = c.Frame()
	assert.Equal(t, Dragging, frame.State)
	want := []FrameItem{
		{Item: Item{ID: "T1", Order: 1, Payload: "Topic 1"}},
		{Item: Item{ID: "T2", Order: 2, Payload: "Topic 2"}, Offset: 140, Active: true},
		{Item: Item{ID: "T3", Order: 3, Payload: "Topic 3"}, Offset: -130},
		{Item: Item{ID: "T4", Order: 4, Payload: "Topic 4"}},
		{Item: Item{ID: "T5", Order: 5, Payload: "Topic 5"}},
	}
	assert.Equal(t, want, frame.Items)
}

func TestController_refreshReplacesList(t *testing.T) {
	var (
		c          *Controller
		refreshErr error
	)
	authoritative := []Item{{ID: "T5", Order: 1}, {ID: "T4", Order: 2}, {ID: "T9", Order: 3}}
	c, _ = newController(t, &fakePersister{resp: Response{Success: true}}, Options{
		Refresh: func(context.Context) error {
			refreshErr = c.Replace(authoritative)
			return refreshErr
		},
	})

	c.Begin(0)
	c.Move(0, 130)
	out := <-c.End()
	assert.Equal(t, ResultCommitted, out.Result)
	assert.NoError(t, refreshErr)
	assert.Equal(t, "T5,T4,T9", idsOf(c.Store().Items()))
}
