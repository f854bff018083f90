package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/trezcool/masomo-curriculum/apps/api/echo"
	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
	inmemdb "github.com/trezcool/masomo-curriculum/storage/database/inmem"
	"github.com/trezcool/masomo-curriculum/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type (
	testEnv struct {
		app        *Server
		usrRepo    user.Repository
		subjRepo   subject.Repository
		subjectSvc *subject.Service
	}

	httpErr struct {
		Error string `json:"error"`
	}

	httpTest struct {
		name     string
		method   string
		path     string
		body     []byte
		token    string
		wantCode int
		wantData []byte
	}
)

// setUp returns a server backed by a fresh in-memory database.
func setUp(t *testing.T) *testEnv {
	t.Helper()

	db := inmemdb.NewDB()
	env := &testEnv{
		usrRepo:  inmemdb.NewUserRepository(db),
		subjRepo: inmemdb.NewSubjectRepository(db),
	}

	subjectSvc, err := subject.NewService(env.subjRepo, core.NopLogger())
	if err != nil {
		t.Fatalf("subject.NewService(): %v", err)
	}
	env.subjectSvc = subjectSvc

	validate, translator := testutil.NewValidator()
	env.app = NewServer(ServerDeps{
		Conf: &core.Config{
			AppName:   "Masomo",
			SecretKey: "test-secret",
			TestMode:  true,
			Server: core.ServerConfig{
				JWTExpirationDelta:        time.Hour,
				JWTRefreshExpirationDelta: time.Hour,
			},
		},
		Logger:         core.NopLogger(),
		UserSvc:        user.NewService(env.usrRepo),
		SubjectSvc:     subjectSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = env.app.Close() })
	return env
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	token, err := env.app.GenerateToken(usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
