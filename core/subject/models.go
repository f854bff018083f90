package subject

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
)

type Subject struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Topic is one entry of a subject's curriculum. Order is 1-based and contiguous within a subject.
type Topic struct {
	ID          string      `json:"id" db:"id"`
	SubjectID   string      `json:"subject_id" db:"subject_id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	Order       int         `json:"order" db:"position"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Items converts ordered topics to reorderable items carrying the topic as payload.
func Items(topics []Topic) []reorder.Item {
	items := make([]reorder.Item, 0, len(topics))
	for _, t := range topics {
		items = append(items, reorder.Item{ID: t.ID, Order: t.Order, Payload: t})
	}
	return items
}

// TopicTitle names a topic item in notifications.
func TopicTitle(it reorder.Item) string {
	if t, ok := it.Payload.(Topic); ok && t.Title != "" {
		return t.Title
	}
	return it.ID
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
	Code string `json:"code" validate:"required,subjcode"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = cleanCode(ns.Code)
	return validate.Struct(ns)
}

// NewTopic contains information needed to append a Topic to a Subject.
type NewTopic struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// Validate checks the fields and rejects titles too similar to one of existing.
func (nt *NewTopic) Validate(validate *validator.Validate, existing []Topic) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	for _, t := range existing {
		if titleSimilarity(nt.Title, t.Title) >= titleMaxSim {
			return core.NewValidationError(nil, core.FieldError{Field: "title", Error: titleTooSimilarText})
		}
	}
	return nil
}

// MoveTopic is the body of a position change. Position is 1-based.
type MoveTopic struct {
	Position int `json:"position" validate:"required,min=1"`
}

func (mt MoveTopic) Validate(validate *validator.Validate) error { return validate.Struct(mt) }

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
