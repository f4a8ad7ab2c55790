package document_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
	"github.com/peerhive/backend/storage/document"
	testutil "github.com/peerhive/backend/tests"
)

type failingSnapshotter struct{ loads []byte }

func (f *failingSnapshotter) Load() ([]byte, error) { return f.loads, nil }
func (f *failingSnapshotter) Save([]byte) error     { return errors.New("disk full") }
func (f *failingSnapshotter) Close() error          { return nil }

func TestNewStore_seedsOnMissingSnapshot(t *testing.T) {
	store, err := document.NewStore(document.NewMemorySnapshotter(), testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	users, err := store.QueryAllUsers()
	if err != nil {
		t.Fatalf("QueryAllUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("seed users = %d, want 3", len(users))
	}

	tests := []struct {
		email string
		pwd   string
		role  string
	}{
		{email: "admin@demo.com", pwd: "admin", role: user.RoleAdmin},
		{email: "asesor@demo.com", pwd: "asesor", role: user.RoleAdvisor},
		{email: "estudiante@demo.com", pwd: "estudiante", role: user.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			usr, err := store.GetUserByEmail(tt.email)
			if err != nil {
				t.Fatalf("GetUserByEmail() error = %v", err)
			}
			if usr.Role != tt.role {
				t.Errorf("role = %v, want %v", usr.Role, tt.role)
			}
			if err = usr.CheckPassword(tt.pwd); err != nil {
				t.Errorf("CheckPassword() error = %v", err)
			}
			if usr.Role == user.RoleAdvisor && !usr.IsAdvisorApproved {
				t.Error("seed advisor should be approved")
			}
		})
	}
}

func TestNewStore_seedsOnMalformedSnapshot(t *testing.T) {
	snap := document.NewMemorySnapshotter()
	if err := snap.Save([]byte("{definitely not json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	store, err := document.NewStore(snap, testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	users, err := store.QueryAllUsers()
	if err != nil {
		t.Fatalf("QueryAllUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Errorf("seed users = %d, want 3", len(users))
	}
}

func TestNewStore_normalizesLegacyRecords(t *testing.T) {
	// a legacy advisor record without isAdvisorApproved counts as approved
	payload := []byte(`{
		"users": [
			{"id": "u_legacy", "name": "Legacy", "email": "legacy@test.pe", "role": "advisor"},
			{"id": "u_new", "name": "New", "email": "new@test.pe", "role": "advisor", "isAdvisorApproved": false}
		]
	}`)
	snap := document.NewMemorySnapshotter()
	if err := snap.Save(payload); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	store, err := document.NewStore(snap, testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	legacy, err := store.GetUserByID("u_legacy")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !legacy.IsAdvisorApproved {
		t.Error("legacy advisor should default to approved")
	}
	if legacy.Subjects == nil {
		t.Error("subjects should be backfilled to an empty slice")
	}
	if legacy.CreatedAt.IsZero() {
		t.Error("createdAt should be backfilled")
	}

	explicit, err := store.GetUserByID("u_new")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if explicit.IsAdvisorApproved {
		t.Error("explicit isAdvisorApproved=false must be kept")
	}

	// entity slices absent from the snapshot come back empty, not nil
	reqs, err := store.QueryAllRequests()
	if err != nil {
		t.Fatalf("QueryAllRequests() error = %v", err)
	}
	if reqs == nil || len(reqs) != 0 {
		t.Errorf("requests = %v, want empty", reqs)
	}
}

func TestStore_roundTrip(t *testing.T) {
	snap := document.NewMemorySnapshotter()
	if err := snap.Save([]byte(`{}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store, err := document.NewStore(snap, testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	student := testutil.CreateUser(t, store, "Student", "student@test.pe", "s3cr3t#Pwd", user.RoleStudent, false)
	req := testutil.CreateRequest(t, store, student.ID, "Cálculo", "Derivadas", time.Now().Add(time.Hour).UTC())

	ses := request.Session{ID: "ses_1", RequestID: req.ID, StudentID: student.ID, AdvisorID: "u_adv", StartsAt: req.StartsAt, Status: request.StatusScheduled, MeetingLink: "https://meet.test/x", CreatedAt: time.Now().UTC()}
	chat := request.Chat{ID: "chat_1", SessionID: ses.ID, StudentID: student.ID, AdvisorID: "u_adv", Messages: []request.Message{}, CreatedAt: time.Now().UTC()}
	req.Status = request.StatusScheduled
	req.AdvisorID = "u_adv"
	if err = store.ScheduleRequest(req, ses, chat); err != nil {
		t.Fatalf("ScheduleRequest() error = %v", err)
	}
	if _, err = store.AppendMessage(chat.ID, request.Message{ID: "msg_1", FromUserID: student.ID, Text: "hola", SentAt: time.Now().UTC()}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	// a second store loading the same snapshot must see identical state
	reloaded, err := document.NewStore(snap, testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	got, err := reloaded.GetUserByEmail("student@test.pe")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if err = got.CheckPassword("s3cr3t#Pwd"); err != nil {
		t.Errorf("CheckPassword() after reload error = %v", err)
	}

	gotReq, err := reloaded.GetRequestByID(req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() error = %v", err)
	}
	if gotReq.Status != request.StatusScheduled || gotReq.AdvisorID != "u_adv" {
		t.Errorf("reloaded request = %+v", gotReq)
	}

	gotChat, err := reloaded.GetChatByID(chat.ID)
	if err != nil {
		t.Fatalf("GetChatByID() error = %v", err)
	}
	if len(gotChat.Messages) != 1 || gotChat.Messages[0].Text != "hola" {
		t.Errorf("reloaded chat messages = %+v", gotChat.Messages)
	}

	// exports of both stores agree except for the lastUpdate stamp
	exp1, err := store.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	exp2, err := reloaded.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var doc1, doc2 map[string]json.RawMessage
	if err = json.Unmarshal(exp1, &doc1); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err = json.Unmarshal(exp2, &doc2); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"users", "requests", "sessions", "chats"} {
		if string(doc1[key]) != string(doc2[key]) {
			t.Errorf("export mismatch on %q:\n%s\n%s", key, doc1[key], doc2[key])
		}
	}
}

func TestStore_DeleteUser_cascades(t *testing.T) {
	store := testutil.NewStore(t)
	student := testutil.CreateUser(t, store, "Student", "student@test.pe", "", user.RoleStudent, false)
	other := testutil.CreateUser(t, store, "Other", "other@test.pe", "", user.RoleStudent, false)

	mine := testutil.CreateRequest(t, store, student.ID, "Cálculo", "Derivadas", time.Now().Add(time.Hour))
	theirs := testutil.CreateRequest(t, store, other.ID, "Física", "Cinemática", time.Now().Add(time.Hour))

	ses := request.Session{ID: "ses_1", RequestID: mine.ID, StudentID: student.ID, AdvisorID: "u_adv", Status: request.StatusScheduled}
	chat := request.Chat{ID: "chat_1", SessionID: ses.ID, StudentID: student.ID, AdvisorID: "u_adv", Messages: []request.Message{}}
	mine.Status = request.StatusScheduled
	mine.AdvisorID = "u_adv"
	if err := store.ScheduleRequest(mine, ses, chat); err != nil {
		t.Fatalf("ScheduleRequest() error = %v", err)
	}

	if err := store.DeleteUser(student.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := store.GetUserByID(student.ID); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("GetUserByID() error = %v, wantErr %v", err, user.ErrNotFound)
	}
	if _, err := store.GetRequestByID(mine.ID); errors.Cause(err) != request.ErrNotFound {
		t.Errorf("GetRequestByID() error = %v, wantErr %v", err, request.ErrNotFound)
	}
	if _, err := store.GetChatByID(chat.ID); errors.Cause(err) != request.ErrChatNotFound {
		t.Errorf("GetChatByID() error = %v, wantErr %v", err, request.ErrChatNotFound)
	}
	sessions, err := store.QueryAllSessions()
	if err != nil {
		t.Fatalf("QueryAllSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}

	// unrelated state survives
	if _, err := store.GetRequestByID(theirs.ID); err != nil {
		t.Errorf("GetRequestByID() unrelated request error = %v", err)
	}

	if err := store.DeleteUser("u_missing"); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("DeleteUser() error = %v, wantErr %v", err, user.ErrNotFound)
	}
}

func TestStore_persistFailureKeepsMemoryAuthoritative(t *testing.T) {
	store, err := document.NewStore(&failingSnapshotter{loads: []byte(`{}`)}, testutil.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	usr := testutil.CreateUser(t, store, "Student", "student@test.pe", "", user.RoleStudent, false)

	// the write failed durably but the in-memory state must answer reads
	got, err := store.GetUserByID(usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Email != "student@test.pe" {
		t.Errorf("GetUserByID() email = %v", got.Email)
	}
}
