package reorder

import (
	"context"
	"sync"
)

type notification struct {
	success        bool
	title, message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

var _ Notifier = (*fakeNotifier)(nil)

type quietNotifier struct{}

func (quietNotifier) NotifySuccess(string, string) {}
func (quietNotifier) NotifyFailure(string, string) {}

func (n *fakeNotifier) NotifySuccess(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{success: true, title: title, message: message})
}

func (n *fakeNotifier) NotifyFailure(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{title: title, message: message})
}

func (n *fakeNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type persistCall struct {
	containerID, itemID string
	position            int
}

// fakePersister records calls and answers with resp/err, or blocks until released when block is set.
type fakePersister struct {
	mu      sync.Mutex
	calls   []persistCall
	resp    Response
	err     error
	block   chan struct{}
	started chan struct{}
}

var _ Persister = (*fakePersister)(nil)

func (p *fakePersister) ReorderItem(ctx context.Context, containerID, itemID string, newPosition int) (Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, persistCall{containerID: containerID, itemID: itemID, position: newPosition})
	block, started := p.block, p.started
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	return p.resp, p.err
}

func (p *fakePersister) all() []persistCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistCall(nil), p.calls...)
}
