package subject

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
)

var (
	// errors
	ErrNotFound      = errors.New("subject not found")
	ErrTopicNotFound = errors.New("topic not found")
	ErrCodeExists    = errors.New("a subject with this code already exists")
	ErrOrderConflict = errors.New("conflict: topics changed since they were loaded")

	// mockable
	NowFunc = func() time.Time { return time.Now().UTC() }

	// OrderingFields are the subject fields QuerySubjects can order by.
	OrderingFields = []string{"name", "code", "created_at", "updated_at"}
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		// QuerySubjects does a case-insensitive match of QueryFilter.Search on Subject.Name or Subject.Code.
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)

		// CreateTopic appends the topic after the subject's last one and returns it with its Order set.
		CreateTopic(ctx context.Context, topic Topic) (Topic, error)
		// QueryTopics returns the subject's topics by Order.
		QueryTopics(ctx context.Context, subjectID string) ([]Topic, error)
		// ReorderTopics atomically renumbers the subject's topics 1..N in the order of ids.
		// current is the order ids was computed from: if the stored order differs from it,
		// or ids is not a permutation of it, ErrOrderConflict is returned and nothing changes.
		ReorderTopics(ctx context.Context, subjectID string, current, ids []string, updatedAt time.Time) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		core.IsProvided(repo, "repo"),
		core.IsProvided(logger, "logger"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "validating subject service arguments")
	}
	return &Service{repo: repo, logger: logger}, nil
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.repo.CheckCodeUniqueness(ctx, ns.Code); err != nil {
		if err == ErrCodeExists {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Subject{}, errors.Wrap(err, "checking code uniqueness")
	}

	now := NowFunc()
	subj, err := svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return subj, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
}

// AddTopic appends a topic at the end of the subject (Order N+1).
func (svc *Service) AddTopic(ctx context.Context, subjectID string, nt NewTopic) (Topic, error) {
	if _, err := svc.repo.GetSubject(ctx, subjectID); err != nil {
		return Topic{}, err
	}

	now := NowFunc()
	topic := Topic{
		SubjectID: subjectID,
		Title:     nt.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nt.Description != "" {
		topic.Description.SetValid(nt.Description)
	}
	topic, err := svc.repo.CreateTopic(ctx, topic)
	if err != nil {
		return Topic{}, errors.Wrap(err, "creating topic")
	}
	return topic, nil
}

func (svc *Service) QueryTopics(ctx context.Context, subjectID string) ([]Topic, error) {
	if _, err := svc.repo.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTopics(ctx, subjectID)
}

// MoveTopic moves a topic to the 1-based position, shifting the topics in between by one,
// and returns the subject's topics in their new order. Moving a topic to its current position succeeds without writing.
func (svc *Service) MoveTopic(ctx context.Context, subjectID, topicID string, position int) ([]Topic, error) {
	topics, err := svc.QueryTopics(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	from := -1
	for i, t := range topics {
		if t.ID == topicID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, ErrTopicNotFound
	}
	if position < 1 || position > len(topics) {
		msg := fmt.Sprintf("position must be between 1 and %d", len(topics))
		return nil, core.NewValidationError(nil, core.FieldError{Field: "position", Error: msg})
	}
	if from == position-1 {
		return topics, nil
	}

	items, err := reorder.Move(Items(topics), from, position-1)
	if err != nil {
		return nil, errors.Wrap(err, "moving topic")
	}

	current := make([]string, 0, len(topics))
	for _, t := range topics {
		current = append(current, t.ID)
	}

	now := NowFunc()
	ids := make([]string, 0, len(items))
	moved := make([]Topic, 0, len(items))
	for _, it := range items {
		t := it.Payload.(Topic)
		if t.Order != it.Order {
			t.UpdatedAt = now
		}
		t.Order = it.Order
		ids = append(ids, t.ID)
		moved = append(moved, t)
	}

	if err := svc.repo.ReorderTopics(ctx, subjectID, current, ids, now); err != nil {
		if err == ErrOrderConflict {
			return nil, err
		}
		return nil, errors.Wrap(err, "reordering topics")
	}
	svc.logger.Info(fmt.Sprintf("topic %s of subject %s moved to position %d", topicID, subjectID, position))
	return moved, nil
}
