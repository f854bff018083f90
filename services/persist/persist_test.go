package persist_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/services/persist"
	inmemdb "github.com/trezcool/masomo-curriculum/storage/database/inmem"
	"github.com/trezcool/masomo-curriculum/tests"
)

func TestAPIPersister_ReorderItem(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    reorder.Response
		wantErr bool
	}{
		{
			name:   "persisted",
			status: http.StatusOK,
			body:   `{"success":true,"message":"Algebra moved to position 2"}`,
			want:   reorder.Response{Success: true, Message: "Algebra moved to position 2"},
		},
		{
			name:   "rejected by server",
			status: http.StatusOK,
			body:   `{"success":false,"message":"locked"}`,
			want:   reorder.Response{Success: false, Message: "locked"},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"error":"conflict: topics changed since they were loaded"}`,
			want:   reorder.Response{Success: false, Message: "conflict: topics changed since they were loaded"},
		},
		{
			name:   "field errors",
			status: http.StatusBadRequest,
			body:   `{"position":"position must be between 1 and 3"}`,
			want:   reorder.Response{Success: false, Message: "position: position must be between 1 and 3"},
		},
		{
			name:   "unreadable error",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			want:   reorder.Response{Success: false, Message: "bad gateway"},
		},
		{
			name:    "unreadable success",
			status:  http.StatusOK,
			body:    `ok`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq struct {
				method, path, auth string
				body               map[string]int
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotReq.method = r.Method
				gotReq.path = r.URL.Path
				gotReq.auth = r.Header.Get("Authorization")
				raw, _ := ioutil.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &gotReq.body)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := persist.NewAPIPersister(core.APIConfig{BaseURL: srv.URL + "/", Token: "s3cr3t"}, srv.Client())
			got, err := p.ReorderItem(context.Background(), "S1", "T4", 2)

			assert.Equal(t, http.MethodPut, gotReq.method)
			assert.Equal(t, "/v1/subjects/S1/topics/T4/position", gotReq.path)
			assert.Equal(t, "Bearer s3cr3t", gotReq.auth)
			assert.Equal(t, map[string]int{"position": 2}, gotReq.body)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIPersister_transportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := persist.NewAPIPersister(core.APIConfig{BaseURL: url}, nil)
	_, err := p.ReorderItem(context.Background(), "S1", "T4", 2)
	assert.Error(t, err)
}

func TestAPIPersister_cancelledRequest(t *testing.T) {
	cancelled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p := persist.NewAPIPersister(core.APIConfig{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.ReorderItem(ctx, "S1", "T4", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending reorder request")

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("server still handling the request after the context expired")
	}
}

func TestServicePersister_ReorderItem(t *testing.T) {
	repo := inmemdb.NewSubjectRepository(inmemdb.NewDB())
	svc, err := subject.NewService(repo, core.NopLogger())
	require.NoError(t, err)

	subj := testutil.CreateSubject(t, repo, "Mathematics", "MATH-101")
	topics := testutil.CreateTopics(t, repo, subj.ID, "Numbers", "Fractions", "Geometry", "Algebra")
	p := persist.NewServicePersister(svc)
	ctx := context.Background()

	got, err := p.ReorderItem(ctx, subj.ID, topics[3].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, reorder.Response{Success: true, Message: "Algebra moved to position 2"}, got)

	moved, err := svc.QueryTopics(ctx, subj.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(moved))
	for _, tp := range moved {
		titles = append(titles, tp.Title)
	}
	assert.Equal(t, []string{"Numbers", "Algebra", "Fractions", "Geometry"}, titles)

	rejections := []struct {
		name      string
		subjectID string
		topicID   string
		position  int
		wantMsg   string
	}{
		{"unknown subject", "nope", topics[0].ID, 1, subject.ErrNotFound.Error()},
		{"unknown topic", subj.ID, "nope", 1, subject.ErrTopicNotFound.Error()},
		{"out of range", subj.ID, topics[0].ID, 9, "position: position must be between 1 and 4"},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ReorderItem(ctx, tt.subjectID, tt.topicID, tt.position)
			require.NoError(t, err)
			assert.False(t, got.Success)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}
