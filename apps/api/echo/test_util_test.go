package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
	dummymail "github.com/peerhive/backend/services/email/dummy"
	graphsvc "github.com/peerhive/backend/services/graph"
	"github.com/peerhive/backend/storage/document"
	testutil "github.com/peerhive/backend/tests"
)

type testApp struct {
	server  *Server
	conf    *core.Config
	store   *document.Store
	usrSvc  *user.Service
	reqSvc  *request.Service
	mailSvc *dummymail.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := testutil.NewConfig()
	store := testutil.NewStore(t)
	mailSvc := dummymail.NewService()
	logger := testutil.NewLogger()

	usrSvc := user.NewService(conf, store, mailSvc)
	reqSvc := request.NewService(
		conf, store, usrSvc, mailSvc,
		graphsvc.StaticLinker{URL: conf.Graph.TeamsChannelURL},
		logger,
	)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		RequestSvc:     reqSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testApp{
		server:  server,
		conf:    conf,
		store:   store,
		usrSvc:  usrSvc,
		reqSvc:  reqSvc,
		mailSvc: mailSvc,
	}
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) doMultipart(
	t *testing.T,
	method, path, token string,
	fields map[string]string,
	fileField, fileName string,
	fileContent []byte,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("writing form field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err = io.Copy(fw, bytes.NewReader(fileContent)); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func wantCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("code = %v, want %v; body: %s", rec.Code, want, rec.Body.String())
	}
}
