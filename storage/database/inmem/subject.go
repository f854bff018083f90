package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func (repo *subjectRepository) CheckCodeUniqueness(_ context.Context, code string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, subj := range repo.db.table {
		if subj.Code == code {
			return subject.ErrCodeExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	subj.ID = uuid.New().String()
	repo.db.table[subj.ID] = &subj
	return subj, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, id string) (subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if subj, ok := repo.db.table[id]; ok {
		return *subj, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var search string
	if filter != nil {
		search = strings.ToLower(filter.Search)
	}
	subjects := make([]subject.Subject, 0, len(repo.db.table))
	for _, subj := range repo.db.table {
		if search == "" ||
			strings.Contains(strings.ToLower(subj.Name), search) ||
			strings.Contains(strings.ToLower(subj.Code), search) {
			subjects = append(subjects, *subj)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareSubjects(subjects[i], subjects[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func compareSubjects(a, b subject.Subject, field string) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (repo *subjectRepository) CreateTopic(_ context.Context, topic subject.Topic) (subject.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[topic.SubjectID]; !ok {
		return subject.Topic{}, subject.ErrNotFound
	}
	topic.ID = uuid.New().String()
	topic.Order = len(repo.db.topics[topic.SubjectID]) + 1
	repo.db.topics[topic.SubjectID] = append(repo.db.topics[topic.SubjectID], &topic)
	return topic, nil
}

func (repo *subjectRepository) QueryTopics(_ context.Context, subjectID string) ([]subject.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.topics[subjectID]
	topics := make([]subject.Topic, 0, len(rows))
	for _, t := range rows {
		topics = append(topics, *t)
	}
	return topics, nil
}

func (repo *subjectRepository) ReorderTopics(_ context.Context, subjectID string, current, ids []string, updatedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rows := repo.db.topics[subjectID]
	if len(current) != len(rows) || len(ids) != len(rows) {
		return subject.ErrOrderConflict
	}
	byID := make(map[string]*subject.Topic, len(rows))
	for i, t := range rows {
		if t.ID != current[i] {
			return subject.ErrOrderConflict
		}
		byID[t.ID] = t
	}

	reordered := make([]*subject.Topic, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return subject.ErrOrderConflict
		}
		delete(byID, id) // rejects duplicates
		reordered = append(reordered, t)
	}

	for i, t := range reordered {
		if t.Order != i+1 {
			t.Order = i + 1
			t.UpdatedAt = updatedAt
		}
	}
	repo.db.topics[subjectID] = reordered
	return nil
}
