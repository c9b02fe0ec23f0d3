package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/grupka/grupka/apps/api/echo"
	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
	logsvc "github.com/grupka/grupka/services/logger"
	metricsvc "github.com/grupka/grupka/services/metrics"
	"github.com/grupka/grupka/storage/cache"
	"github.com/grupka/grupka/tests"
)

type (
	httpTest struct {
		name     string
		method   string
		path     string
		body     []byte
		token    string
		wantCode int
		wantData []byte
	}

	dataBody struct {
		Data interface{} `json:"data"`
	}

	errBody struct {
		Code    core.ErrorCode    `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	}

	app struct {
		*testutil.Env
		srv    *echoapi.Server
		tokens *echoapi.TokenIssuer
	}
)

func setup(t *testing.T, configure ...func(*core.Config)) *app {
	t.Helper()

	env := testutil.NewEnv(t)
	for _, fn := range configure {
		fn(env.Conf)
	}
	srv := echoapi.NewServer(&echoapi.Deps{
		Conf:        env.Conf,
		Logger:      logsvc.NewTestLogger(t),
		Metrics:     metricsvc.New(),
		Revocations: cache.NewMemoryStore(),
		UserSvc:     env.UserSvc,
		GroupSvc:    env.GroupSvc,
		ChildSvc:    env.ChildSvc,
		EventSvc:    env.EventSvc,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &app{
		Env:    env,
		srv:    srv,
		tokens: echoapi.NewTokenIssuer(env.Conf),
	}
}

func (a *app) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	a.srv.ServeHTTP(rec, req)
	return rec
}

func (a *app) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, a.do(tt))
		})
	}
}

func (a *app) createUser(t *testing.T, name, email string) user.User {
	return testutil.CreateUser(t, a.UserRepo, name, email, testutil.Password, true)
}

func (a *app) token(t *testing.T, usr user.User) string {
	token, err := a.tokens.Issue(usr)
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	if method == "" {
		method = http.MethodGet
	}
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

func marshallData(t *testing.T, obj interface{}) []byte {
	return marshallObj(t, dataBody{Data: obj})
}

func marshallErr(t *testing.T, err *core.Error) []byte {
	return marshallObj(t, map[string]errBody{
		"error": {Code: err.Code, Message: err.Message, Details: err.Details},
	})
}

func errData(code core.ErrorCode, msg string, details ...string) *core.Error {
	e := core.NewError(code, msg)
	for i := 0; i+1 < len(details); i += 2 {
		e = e.WithField(details[i], details[i+1])
	}
	return e
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), &dataBody{Data: dst}); err != nil {
		t.Fatalf("decodeData(): %v; body %s", err, rec.Body.String())
	}
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var body struct {
		Error errBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decodeErr(): %v; body %s", err, rec.Body.String())
	}
	return body.Error
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		if rec.Body.Len() > 0 {
			t.Errorf("failed! data = %v; want no content", rec.Body.String())
		}
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
