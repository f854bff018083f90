// +build integration

package sqlxrepos_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/storage/database"
	sqlxrepos "github.com/trezcool/masomo-curriculum/storage/database/sqlx"
)

// Run with a reachable postgres configured through ENV=TEST (TEST_DATABASE_HOST, ...):
//   go test -tags integration ./storage/database/sqlx/
func openDB(t *testing.T) *sqlx.DB {
	conf := core.NewConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	require.NoError(t, database.Migrate(db, conf))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createSubject(t *testing.T, db *sqlx.DB, repo subject.Repository) subject.Subject {
	now := time.Now()
	code := "IT-" + strings.ToUpper(uuid.New().String()[:8])
	subj, err := repo.CreateSubject(context.Background(), subject.Subject{Name: "Integration " + code, Code: code, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM subject WHERE id = $1`, subj.ID) })
	return subj
}

func topicIDs(topics []subject.Topic) []string {
	ids := make([]string, 0, len(topics))
	for _, t := range topics {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestSubjectRepository_CreateTopic(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := sqlxrepos.NewSubjectRepository(db)
	subj := createSubject(t, db, repo)

	for i, title := range []string{"Numbers", "Fractions", "Geometry"} {
		topic, err := repo.CreateTopic(ctx, subject.Topic{SubjectID: subj.ID, Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, i+1, topic.Order)
	}

	_, err := repo.CreateTopic(ctx, subject.Topic{SubjectID: uuid.New().String(), Title: "Orphan", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.Equal(t, subject.ErrNotFound, err)

	_, err = repo.CreateSubject(ctx, subject.Subject{Name: "Twin", Code: subj.Code, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.Equal(t, subject.ErrCodeExists, err)
}

func TestSubjectRepository_ReorderTopics(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := sqlxrepos.NewSubjectRepository(db)
	subj := createSubject(t, db, repo)

	var created []subject.Topic
	for _, title := range []string{"A", "B", "C", "D"} {
		topic, err := repo.CreateTopic(ctx, subject.Topic{SubjectID: subj.ID, Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()})
		require.NoError(t, err)
		created = append(created, topic)
	}
	a, b, c, d := created[0].ID, created[1].ID, created[2].ID, created[3].ID
	current := []string{a, b, c, d}

	// D to the top: every row changes position inside one transaction
	require.NoError(t, repo.ReorderTopics(ctx, subj.ID, current, []string{d, a, b, c}, time.Now()))
	stored, err := repo.QueryTopics(ctx, subj.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{d, a, b, c}, topicIDs(stored))
	for i, topic := range stored {
		assert.Equal(t, i+1, topic.Order)
	}

	tests := []struct {
		name    string
		current []string
		ids     []string
	}{
		{name: "stale order", current: current, ids: []string{b, a, c, d}},
		{name: "missing topic", current: []string{d, a, b}, ids: []string{a, b, d}},
		{name: "not a permutation", current: []string{d, a, b, c}, ids: []string{d, a, a, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, subject.ErrOrderConflict, repo.ReorderTopics(ctx, subj.ID, tt.current, tt.ids, time.Now()))
		})
	}

	stored, err = repo.QueryTopics(ctx, subj.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{d, a, b, c}, topicIDs(stored))
}
