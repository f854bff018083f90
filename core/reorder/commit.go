package reorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-curriculum/core"
)

var (
	// errors
	ErrTimeout      = errors.New("saving the new order timed out")
	ErrStaleSession = errors.New("list changed during the drag")

	successTitle   = "Order updated"
	failureTitle   = "Reorder failed"
	defaultFailure = "could not save the new order"
)

// Result classifies how a drag ended.
type Result int

const (
	// ResultNoop: released at its start index (or never confirmed); nothing changed.
	ResultNoop Result = iota
	// ResultCommitted: the new order was applied and persisted.
	ResultCommitted
	// ResultRolledBack: persistence failed or timed out; the list was restored.
	ResultRolledBack
	// ResultIgnored: End without a drag, or a duplicate End while committing.
	ResultIgnored
)

func (r Result) String() string {
	switch r {
	case ResultNoop:
		return "noop"
	case ResultCommitted:
		return "committed"
	case ResultRolledBack:
		return "rolled back"
	case ResultIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Outcome reports one finished drag.
type Outcome struct {
	Result   Result
	ItemID   string
	From     int // 0-based
	To       int // 0-based
	Position int // 1-based position sent to the Persister
	Items    []Item
	Err      error
}

// PersistenceError is a failed or timed out persistence call.
type PersistenceError struct {
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	return "persisting order: " + e.Reason
}

func (e *PersistenceError) Cause() error  { return e.Err }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Committer finalizes a drag: optimistic reorder, persistence, then success or rollback.
type Committer struct {
	store     *Store
	persister Persister
	notifier  Notifier
	opts      Options
}

func NewCommitter(store *Store, persister Persister, notifier Notifier, opts Options) (*Committer, error) {
	if err := vala.BeginValidation().Validate(
		core.IsProvided(store, "store"),
		core.IsProvided(persister, "persister"),
		core.IsProvided(notifier, "notifier"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "validating committer arguments")
	}
	return &Committer{
		store:     store,
		persister: persister,
		notifier:  notifier,
		opts:      opts.withDefaults(),
	}, nil
}

// pending is an optimistically applied reorder waiting on the Persister.
type pending struct {
	session  Session
	snap     Snapshot
	item     Item
	position int
}

// Commit runs the whole commit synchronously and returns its outcome.
func (m *Committer) Commit(ctx context.Context, session Session) Outcome {
	if session.HoveredIndex == session.StartIndex {
		return Outcome{Result: ResultNoop, ItemID: session.ActiveItemID, From: session.StartIndex, To: session.StartIndex}
	}
	p, err := m.prepare(session)
	if err != nil {
		return Outcome{Result: ResultNoop, ItemID: session.ActiveItemID, From: session.StartIndex, To: session.StartIndex, Err: err}
	}
	out := m.resolve(ctx, p)
	if out.Result == ResultCommitted {
		m.refresh(ctx)
	}
	return out
}

// prepare snapshots the store and applies the move. It never blocks.
func (m *Committer) prepare(session Session) (*pending, error) {
	snap := m.store.Snapshot()
	if session.StartIndex < 0 || session.StartIndex >= snap.Len() {
		return nil, ErrInvalidIndex
	}
	item := snap.items[session.StartIndex]
	if item.ID != session.ActiveItemID {
		return nil, ErrStaleSession
	}
	if _, err := m.store.Reorder(session.StartIndex, session.HoveredIndex); err != nil {
		return nil, errors.Wrap(err, "reordering store")
	}
	m.opts.Logger.Debug(fmt.Sprintf("reorder: %s moved %d -> %d (optimistic)", item.ID, session.StartIndex, session.HoveredIndex))
	return &pending{
		session:  session,
		snap:     snap,
		item:     item,
		position: session.HoveredIndex + 1,
	}, nil
}

// resolve awaits the Persister and reconciles the store. Exactly one notification is emitted.
func (m *Committer) resolve(ctx context.Context, p *pending) Outcome {
	out := Outcome{
		ItemID:   p.item.ID,
		From:     p.session.StartIndex,
		To:       p.session.HoveredIndex,
		Position: p.position,
	}

	var perr *PersistenceError
	resp, err := m.persist(ctx, p)
	switch {
	case err != nil:
		perr = &PersistenceError{Reason: err.Error(), Err: err}
	case !resp.Success:
		reason := resp.Message
		if reason == "" {
			reason = defaultFailure
		}
		perr = &PersistenceError{Reason: reason}
	}

	if perr != nil {
		m.store.Restore(p.snap)
		m.opts.Logger.Warn(fmt.Sprintf("reorder: rolled back %s: %v", p.item.ID, perr), map[string]interface{}{
			"container": m.opts.ContainerID,
			"item":      p.item.ID,
			"position":  p.position,
		})
		m.notifier.NotifyFailure(failureTitle, perr.Reason)
		out.Result = ResultRolledBack
		out.Err = perr
		out.Items = m.store.Items()
		return out
	}

	m.opts.Logger.Info(fmt.Sprintf("reorder: %s saved at position %d", p.item.ID, p.position))
	m.notifier.NotifySuccess(successTitle, fmt.Sprintf("%s moved to position %d", m.opts.ItemTitle(p.item), p.position))
	out.Result = ResultCommitted
	out.Items = m.store.Items()
	return out
}

func (m *Committer) persist(ctx context.Context, p *pending) (Response, error) {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Errorf("persister panicked: %v", r)}
			}
		}()
		resp, err := m.persister.ReorderItem(pctx, m.opts.ContainerID, p.item.ID, p.position)
		done <- result{resp: resp, err: err}
	}()

	var expired <-chan time.Time
	if m.opts.CommitTimeout > 0 {
		expired = m.opts.Clock.After(m.opts.CommitTimeout)
	}
	select {
	case r := <-done:
		return r.resp, r.err
	case <-expired:
		return Response{}, ErrTimeout
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (m *Committer) refresh(ctx context.Context) {
	if m.opts.Refresh == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.opts.Logger.Error(fmt.Sprintf("reorder: refresh panicked: %v", r))
		}
	}()
	if err := m.opts.Refresh(ctx); err != nil {
		m.opts.Logger.Warn("reorder: refreshing after commit", errors.Wrap(err, "refreshing"))
	}
}

// Options configure a Controller and its Committer.
type Options struct {
	ContainerID     string
	ItemHeight      float64
	MinDragDistance float64
	CommitTimeout   time.Duration
	ShiftDuration   time.Duration
	SettleDuration  time.Duration

	Clock     clockwork.Clock
	Feedback  Feedback
	Refresh   RefreshFunc
	Logger    core.Logger
	ItemTitle func(Item) string // names the item in notifications; defaults to its ID
	Context   context.Context   // parent of every commit; defaults to context.Background()
}

// OptionsFromConfig builds Options for the given container from the app config.
func OptionsFromConfig(containerID string, conf core.ReorderConfig) Options {
	return Options{
		ContainerID:     containerID,
		ItemHeight:      conf.ItemHeight,
		MinDragDistance: conf.MinDragDistance,
		CommitTimeout:   conf.CommitTimeout,
		ShiftDuration:   conf.ShiftDuration,
		SettleDuration:  conf.SettleDuration,
	}
}

func (opts Options) withDefaults() Options {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger()
	}
	if opts.ItemTitle == nil {
		opts.ItemTitle = func(it Item) string { return it.ID }
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return opts
}
