package reorder

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
)

// ErrBusy is returned when the list is replaced while a drag or commit is in progress.
var ErrBusy = errors.New("a drag or commit is in progress")

// State of the pointer session state machine.
type State int

const (
	Idle State = iota
	// Armed: pressed and held on an item, drag intent not yet confirmed.
	Armed
	Dragging
	// Committing: waiting on the Persister; new drags are rejected.
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one drag, from the held item to its current hover slot.
type Session struct {
	ActiveItemID string
	StartIndex   int
	ItemHeight   float64
	Displacement float64 // cumulative vertical movement since the press
	HoveredIndex int
}

type (
	// FrameItem is one row of a render tick.
	FrameItem struct {
		Item   Item
		Offset float64
		Active bool
	}

	// Frame is what the renderer needs per tick: the true order and every visual offset.
	Frame struct {
		State State
		Items []FrameItem
	}
)

// Controller owns the gesture lifecycle: Begin on long-press, Move on each update, End on release.
// At most one session exists at a time; Begin while armed, dragging or committing is a no-op.
type Controller struct {
	mu        sync.Mutex
	state     State
	session   Session
	ids       []string // list order when the press began
	store     *Store
	committer *Committer
	animator  *Animator
	opts      Options
}

func NewController(store *Store, persister Persister, notifier Notifier, opts Options) (*Controller, error) {
	if opts.ItemHeight <= 0 || math.IsNaN(opts.ItemHeight) {
		return nil, errors.Errorf("invalid item height %v", opts.ItemHeight)
	}
	committer, err := NewCommitter(store, persister, notifier, opts)
	if err != nil {
		return nil, err
	}
	opts = committer.opts
	return &Controller{
		store:     store,
		committer: committer,
		animator:  NewAnimator(opts.Clock, opts.ShiftDuration, opts.SettleDuration),
		opts:      opts,
	}, nil
}

func (c *Controller) Store() *Store { return c.store }

func (c *Controller) Animator() *Animator { return c.animator }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current drag session; ok is false unless a drag is confirmed.
func (c *Controller) Session() (s Session, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging {
		return Session{}, false
	}
	return c.session, true
}

// Begin arms a drag on the item at index. It reports whether the press was accepted.
func (c *Controller) Begin(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		c.opts.Logger.Debug(fmt.Sprintf("reorder: begin(%d) rejected while %s", index, c.state))
		return false
	}
	item, ok := c.store.At(index)
	if !ok {
		return false
	}

	c.state = Armed
	c.ids = c.store.IDs()
	c.session = Session{
		ActiveItemID: item.ID,
		StartIndex:   index,
		ItemHeight:   c.opts.ItemHeight,
		HoveredIndex: index,
	}
	return true
}

// Move feeds the cumulative pointer movement since the press.
// Until a drag is confirmed, movement that is not predominantly vertical or below the
// minimum distance is ignored (false) so the surrounding scroll gesture proceeds.
func (c *Controller) Move(deltaX, deltaY float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Armed:
		if !c.confirmsIntent(deltaX, deltaY) {
			return false
		}
		c.state = Dragging
		item, _ := c.store.At(c.session.StartIndex)
		c.opts.Logger.Debug(fmt.Sprintf("reorder: dragging %s from %d", item.ID, c.session.StartIndex))
		if c.opts.Feedback != nil {
			c.opts.Feedback.DragStarted(item)
		}
	case Dragging:
	default:
		return false
	}

	c.session.Displacement = deltaY
	c.session.HoveredIndex = TargetIndex(deltaY, c.session.StartIndex, c.session.ItemHeight, len(c.ids))
	c.animator.Update(c.ids, c.session.StartIndex, c.session.HoveredIndex, c.session.ItemHeight)
	return true
}

func (c *Controller) confirmsIntent(dx, dy float64) bool {
	ady := math.Abs(dy)
	return ady > math.Abs(dx) && ady > c.opts.MinDragDistance
}

// End releases the gesture. The returned channel receives exactly one Outcome and is then closed.
// A changed index is applied to the store before End returns; persistence resolves asynchronously.
func (c *Controller) End() <-chan Outcome {
	out := make(chan Outcome, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Armed:
		s := c.session
		c.reset()
		out <- Outcome{Result: ResultNoop, ItemID: s.ActiveItemID, From: s.StartIndex, To: s.StartIndex}
		close(out)
		return out
	case Dragging:
	default:
		out <- Outcome{Result: ResultIgnored}
		close(out)
		return out
	}

	s := c.session
	s.HoveredIndex = TargetIndex(s.Displacement, s.StartIndex, s.ItemHeight, len(c.ids))
	c.animator.Reset()

	if s.HoveredIndex == s.StartIndex {
		c.reset()
		out <- Outcome{Result: ResultNoop, ItemID: s.ActiveItemID, From: s.StartIndex, To: s.StartIndex}
		close(out)
		return out
	}

	p, err := c.committer.prepare(s)
	if err != nil {
		c.reset()
		out <- Outcome{Result: ResultNoop, ItemID: s.ActiveItemID, From: s.StartIndex, To: s.StartIndex, Err: err}
		close(out)
		return out
	}

	c.state = Committing
	ctx := c.opts.Context
	go func() {
		defer close(out)
		outcome := c.committer.resolve(ctx, p)

		c.mu.Lock()
		c.state = Idle
		c.session = Session{}
		c.ids = nil
		c.mu.Unlock()
		c.animator.Prune(c.store.IDs())

		if outcome.Result == ResultCommitted {
			c.committer.refresh(ctx)
		}
		out <- outcome
	}()
	return out
}

// Cancel abandons an armed or dragging session without touching the store.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Armed && c.state != Dragging {
		return false
	}
	c.animator.Reset()
	c.reset()
	return true
}

// reset must be called with c.mu held.
func (c *Controller) reset() {
	c.state = Idle
	c.session = Session{}
	c.ids = nil
}

// Replace installs authoritative items (e.g. after a refresh). Only allowed while idle.
func (c *Controller) Replace(items []Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return ErrBusy
	}
	if err := c.store.Replace(items); err != nil {
		return err
	}
	c.animator.Prune(c.store.IDs())
	return nil
}

// Frame returns the render data for the current tick.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	state, session := c.state, c.session
	c.mu.Unlock()

	items := c.store.Items()
	offsets := c.animator.Offsets()
	frame := Frame{State: state, Items: make([]FrameItem, 0, len(items))}
	for i, it := range items {
		fi := FrameItem{Item: it, Offset: offsets[it.ID]}
		if state == Dragging && i == session.StartIndex && it.ID == session.ActiveItemID {
			fi.Active = true
			fi.Offset = ClampDisplacement(session.Displacement, session.StartIndex, session.ItemHeight, len(items))
		}
		frame.Items = append(frame.Items, fi)
	}
	return frame
}
