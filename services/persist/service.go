package persist

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
	"github.com/trezcool/masomo-curriculum/core/subject"
)

// ServicePersister saves topic positions straight through a subject.Service, without a network hop.
type ServicePersister struct {
	svc *subject.Service
}

var _ reorder.Persister = (*ServicePersister)(nil)

func NewServicePersister(svc *subject.Service) *ServicePersister {
	return &ServicePersister{svc: svc}
}

// ReorderItem maps domain errors to rejections; anything else is returned as is.
func (p *ServicePersister) ReorderItem(ctx context.Context, subjectID, topicID string, newPosition int) (reorder.Response, error) {
	topics, err := p.svc.MoveTopic(ctx, subjectID, topicID, newPosition)
	if err != nil {
		switch cause := errors.Cause(err).(type) {
		case *core.ValidationError:
			return reorder.Response{Success: false, Message: cause.Error()}, nil
		default:
			switch cause {
			case subject.ErrNotFound, subject.ErrTopicNotFound, subject.ErrOrderConflict:
				return reorder.Response{Success: false, Message: cause.Error()}, nil
			}
		}
		return reorder.Response{}, errors.Wrap(err, "moving topic")
	}

	var title string
	for _, t := range topics {
		if t.ID == topicID {
			title = t.Title
			break
		}
	}
	return reorder.Response{Success: true, Message: fmt.Sprintf("%s moved to position %d", title, newPosition)}, nil
}
