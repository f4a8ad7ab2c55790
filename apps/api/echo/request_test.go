package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
	testutil "github.com/peerhive/backend/tests"
)

func TestRequestAPI_create(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)
	studentToken := getToken(t, student)

	t.Run("student files a request", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests", studentToken, request.NewRequest{
			Subject:  "Cálculo",
			Topic:    "Derivadas",
			StartsAt: time.Now().Add(24 * time.Hour),
			Notes:    "antes del parcial",
		})
		wantCode(t, rec, http.StatusCreated)

		var req request.Request
		decodeBody(t, rec, &req)
		if req.StudentID != student.ID {
			t.Errorf("studentId = %q, want %q", req.StudentID, student.ID)
		}
		if req.Status != request.StatusPending || req.AdvisorID != "" {
			t.Errorf("request = %+v, want pending and unassigned", req)
		}
	})

	t.Run("past datetime rejected", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests", studentToken, request.NewRequest{
			Subject:  "Cálculo",
			Topic:    "Derivadas",
			StartsAt: time.Now().Add(-time.Hour),
		})
		wantCode(t, rec, http.StatusBadRequest)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests", studentToken, request.NewRequest{
			StartsAt: time.Now().Add(time.Hour),
		})
		wantCode(t, rec, http.StatusBadRequest)
	})

	t.Run("auth required", func(t *testing.T) {
		wantCode(t, app.do(t, http.MethodGet, "/v1/requests", "", nil), http.StatusUnauthorized)
	})
}

func TestRequestAPI_assign(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)
	advisor := testutil.CreateUser(t, app.store, "Advisor", "advisor@test.pe", "", user.RoleAdvisor, true)
	advisorToken := getToken(t, advisor)

	req := testutil.CreateRequest(t, app.store, student.ID, "Cálculo", "Derivadas", time.Now().Add(24*time.Hour))

	t.Run("student cannot assign", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/assign", getToken(t, student), nil)
		wantCode(t, rec, http.StatusForbidden)
	})

	t.Run("advisor assigns themselves", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/assign", advisorToken, nil)
		wantCode(t, rec, http.StatusOK)

		var assignment request.Assignment
		decodeBody(t, rec, &assignment)
		if assignment.Request.Status != request.StatusScheduled || assignment.Request.AdvisorID != advisor.ID {
			t.Errorf("request = %+v", assignment.Request)
		}
		if assignment.Session.MeetingLink == "" {
			t.Error("session has no meeting link")
		}
		if assignment.Chat.SessionID != assignment.Session.ID {
			t.Errorf("chat = %+v", assignment.Chat)
		}
	})

	t.Run("second assign conflicts", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/assign", advisorToken, nil)
		wantCode(t, rec, http.StatusConflict)
	})

	t.Run("unknown request", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests/req_missing/assign", advisorToken, nil)
		wantCode(t, rec, http.StatusNotFound)
	})
}

func TestRequestAPI_listAndPool(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)
	other := testutil.CreateUser(t, app.store, "Other", "other@test.pe", "", user.RoleStudent, false)
	specialist := testutil.CreateUser(t, app.store, "Specialist", "spec@test.pe", "", user.RoleAdvisor, true, "Cálculo")

	testutil.CreateRequest(t, app.store, student.ID, "Cálculo", "Derivadas", time.Now().Add(time.Hour))
	testutil.CreateRequest(t, app.store, other.ID, "Física", "Cinemática", time.Now().Add(time.Hour))

	t.Run("student sees own only", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/requests", getToken(t, student), nil)
		wantCode(t, rec, http.StatusOK)
		var reqs []request.Request
		decodeBody(t, rec, &reqs)
		if len(reqs) != 1 || reqs[0].StudentID != student.ID {
			t.Errorf("requests = %+v", reqs)
		}
	})

	t.Run("advisor pool narrowed by subject", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/requests/pool", getToken(t, specialist), nil)
		wantCode(t, rec, http.StatusOK)
		var reqs []request.Request
		decodeBody(t, rec, &reqs)
		if len(reqs) != 1 || reqs[0].Subject != "Cálculo" {
			t.Errorf("pool = %+v", reqs)
		}
	})

	t.Run("pool hidden from students", func(t *testing.T) {
		wantCode(t, app.do(t, http.MethodGet, "/v1/requests/pool", getToken(t, student), nil), http.StatusForbidden)
	})
}

func TestRequestAPI_sessions(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)
	advisor := testutil.CreateUser(t, app.store, "Advisor", "advisor@test.pe", "", user.RoleAdvisor, true)
	studentToken := getToken(t, student)

	now := time.Now()
	for _, startsAt := range []time.Time{now.Add(72 * time.Hour), now.Add(time.Hour), now.Add(24 * time.Hour)} {
		req := testutil.CreateRequest(t, app.store, student.ID, "Cálculo", "Tema", startsAt)
		if _, err := app.reqSvc.AssignAdvisor(req.ID, advisor.ID); err != nil {
			t.Fatalf("AssignAdvisor() error = %v", err)
		}
	}

	t.Run("visible sessions", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/sessions", studentToken, nil)
		wantCode(t, rec, http.StatusOK)
		var sessions []request.Session
		decodeBody(t, rec, &sessions)
		if len(sessions) != 3 {
			t.Errorf("sessions = %d, want 3", len(sessions))
		}
	})

	t.Run("upcoming ordered and limited", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/sessions/upcoming?limit=2", studentToken, nil)
		wantCode(t, rec, http.StatusOK)
		var sessions []request.Session
		decodeBody(t, rec, &sessions)
		if len(sessions) != 2 {
			t.Fatalf("sessions = %d, want 2", len(sessions))
		}
		if sessions[0].StartsAt.After(sessions[1].StartsAt) {
			t.Errorf("sessions out of order: %v then %v", sessions[0].StartsAt, sessions[1].StartsAt)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		wantCode(t, app.do(t, http.MethodGet, "/v1/sessions/upcoming?limit=lots", studentToken, nil), http.StatusBadRequest)
	})
}

func TestRequestAPI_chats(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)
	advisor := testutil.CreateUser(t, app.store, "Advisor", "advisor@test.pe", "", user.RoleAdvisor, true)
	outsider := testutil.CreateUser(t, app.store, "Outsider", "outsider@test.pe", "", user.RoleStudent, false)
	studentToken := getToken(t, student)

	req := testutil.CreateRequest(t, app.store, student.ID, "Cálculo", "Derivadas", time.Now().Add(time.Hour))
	assignment, err := app.reqSvc.AssignAdvisor(req.ID, advisor.ID)
	if err != nil {
		t.Fatalf("AssignAdvisor() error = %v", err)
	}
	chatID := assignment.Chat.ID

	t.Run("list chats", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/chats", studentToken, nil)
		wantCode(t, rec, http.StatusOK)
		var chats []request.Chat
		decodeBody(t, rec, &chats)
		if len(chats) != 1 || chats[0].ID != chatID {
			t.Errorf("chats = %+v", chats)
		}
	})

	t.Run("outsider cannot see the chat", func(t *testing.T) {
		wantCode(t, app.do(t, http.MethodGet, "/v1/chats/"+chatID, getToken(t, outsider), nil), http.StatusNotFound)
	})

	t.Run("post text message", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/chats/"+chatID+"/messages", studentToken,
			request.NewMessage{Text: "hola, una duda"})
		wantCode(t, rec, http.StatusCreated)
		var msg request.Message
		decodeBody(t, rec, &msg)
		if msg.FromUserID != student.ID || msg.Text != "hola, una duda" {
			t.Errorf("message = %+v", msg)
		}
	})

	t.Run("empty message rejected", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/chats/"+chatID+"/messages", studentToken,
			request.NewMessage{Text: "   "})
		wantCode(t, rec, http.StatusBadRequest)
	})

	t.Run("multipart attachment", func(t *testing.T) {
		rec := app.doMultipart(t, http.MethodPost, "/v1/chats/"+chatID+"/messages", studentToken,
			map[string]string{"text": "apuntes adjuntos"},
			"file", "apuntes.pdf", []byte("pdf bytes"),
		)
		wantCode(t, rec, http.StatusCreated)
		var msg request.Message
		decodeBody(t, rec, &msg)
		if msg.Attachment == nil || msg.Attachment.FileName != "apuntes.pdf" {
			t.Errorf("attachment = %+v", msg.Attachment)
		}
	})

	t.Run("unknown chat", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/chats/chat_missing/messages", studentToken,
			request.NewMessage{Text: "hola"})
		wantCode(t, rec, http.StatusNotFound)
	})
}

func TestRequestAPI_graphStatus(t *testing.T) {
	app := newTestApp(t)
	student := testutil.CreateUser(t, app.store, "Student", "student@test.pe", "", user.RoleStudent, false)

	rec := app.do(t, http.MethodGet, "/v1/graph/status", getToken(t, student), nil)
	wantCode(t, rec, http.StatusOK)
	var status GraphStatusResponse
	decodeBody(t, rec, &status)
	if status.Authorized {
		t.Error("authorized = true, want false without a Graph token")
	}
}
