package reorder

import "context"

type (
	// Response is what the persistence side reports for one reorder.
	Response struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}

	// Persister saves the new 1-based position of an item inside its container.
	// It may block; the engine bounds it with a timeout.
	Persister interface {
		ReorderItem(ctx context.Context, containerID, itemID string, newPosition int) (Response, error)
	}

	// Notifier surfaces commit outcomes to the user. Fire-and-forget.
	Notifier interface {
		NotifySuccess(title, message string)
		NotifyFailure(title, message string)
	}

	// Feedback is told when a press turns into a confirmed drag (e.g. a haptic cue).
	Feedback interface {
		DragStarted(item Item)
	}

	// RefreshFunc lets the surrounding screen reload authoritative data after a successful commit.
	// Its error is logged and otherwise ignored.
	RefreshFunc func(ctx context.Context) error
)

// PersisterFunc adapts a function to a Persister.
type PersisterFunc func(ctx context.Context, containerID, itemID string, newPosition int) (Response, error)

func (fn PersisterFunc) ReorderItem(ctx context.Context, containerID, itemID string, newPosition int) (Response, error) {
	return fn(ctx, containerID, itemID, newPosition)
}

// FeedbackFunc adapts a function to a Feedback.
type FeedbackFunc func(item Item)

func (fn FeedbackFunc) DragStarted(item Item) { fn(item) }
