package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
)

const (
	subjectColumns = `id, name, code, created_at, updated_at`
	topicColumns   = `id, subject_id, title, description, position, created_at, updated_at`

	uniqueViolation = "23505"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM subject WHERE code = $1)`, code); err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if exists {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	subj.ID = uuid.New().String()
	subj.CreatedAt, subj.UpdatedAt = subj.CreatedAt.UTC(), subj.UpdatedAt.UTC()
	q := `INSERT INTO subject (` + subjectColumns + `) VALUES (:id, :name, :code, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, subj); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return subject.Subject{}, subject.ErrCodeExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return subj, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return subject.Subject{}, subject.ErrNotFound
	}
	var subj subject.Subject
	if err := repo.db.GetContext(ctx, &subj, `SELECT `+subjectColumns+` FROM subject WHERE id = $1`, id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject by ID")
	}
	return subj, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil && filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, "(name ILIKE $1 OR code ILIKE $1)")
	}

	q := `SELECT ` + subjectColumns + ` FROM subject`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	// ordering fields are whitelisted by the service
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "name ASC")
	}
	q += " ORDER BY " + strings.Join(orderList, ", ")

	subjects := make([]subject.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) CreateTopic(ctx context.Context, topic subject.Topic) (subject.Topic, error) {
	topic.ID = uuid.New().String()
	topic.CreatedAt, topic.UpdatedAt = topic.CreatedAt.UTC(), topic.UpdatedAt.UTC()

	// position is computed by the insert; a concurrent duplicate violates topic_subject_position_key
	q := `INSERT INTO topic (` + topicColumns + `)
		SELECT $1::uuid, s.id, $2::varchar, $3::text, COALESCE((SELECT MAX(position) FROM topic WHERE subject_id = s.id), 0) + 1, $4::timestamp, $5::timestamp
		FROM subject s WHERE s.id = $6
		RETURNING position`
	err := repo.db.GetContext(ctx, &topic.Order, q,
		topic.ID, topic.Title, topic.Description, topic.CreatedAt, topic.UpdatedAt, topic.SubjectID)
	if err != nil {
		return subject.Topic{}, trapNoRowsErr(err, subject.ErrNotFound, "inserting topic")
	}
	return topic, nil
}

func (repo subjectRepository) QueryTopics(ctx context.Context, subjectID string) ([]subject.Topic, error) {
	topics := make([]subject.Topic, 0)
	if _, err := uuid.Parse(subjectID); err != nil {
		return topics, nil
	}
	q := `SELECT ` + topicColumns + ` FROM topic WHERE subject_id = $1 ORDER BY position`
	if err := repo.db.SelectContext(ctx, &topics, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	return topics, nil
}

func (repo subjectRepository) ReorderTopics(ctx context.Context, subjectID string, current, ids []string, updatedAt time.Time) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked []string
	if err = tx.SelectContext(ctx, &locked, `SELECT id FROM topic WHERE subject_id = $1 ORDER BY position FOR UPDATE`, subjectID); err != nil {
		return errors.Wrap(err, "locking topics")
	}
	if !sameOrder(locked, current) || !sameSet(current, ids) {
		return subject.ErrOrderConflict
	}

	// positions are unique per subject (deferred), so rows can swap within the transaction
	q := `UPDATE topic SET position = t.position, updated_at = $3
		FROM UNNEST($2::uuid[]) WITH ORDINALITY AS t(id, position)
		WHERE topic.id = t.id AND topic.subject_id = $1 AND topic.position <> t.position`
	if _, err = tx.ExecContext(ctx, q, subjectID, pq.Array(ids), updatedAt.UTC()); err != nil {
		return errors.Wrap(err, "updating topic positions")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing topic positions")
	}
	return nil
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
