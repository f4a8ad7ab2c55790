package testutil

import (
	"testing"
	"time"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
	"github.com/peerhive/backend/storage/document"
)

// NewConfig returns a self-contained test configuration.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Debug:            false,
		TestMode:         true,
		AppName:          "PeerHive",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@localhost",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Graph: core.GraphConfig{
			BaseURL:         "https://graph.microsoft.com/v1.0",
			Timezone:        "UTC",
			TeamsChannelURL: "https://teams.microsoft.com/l/channel/test",
		},
	}
}

// NewLogger returns a logger that drops everything.
func NewLogger() core.Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// NewStore returns an empty in-memory document store. The memory snapshotter
// is pre-seeded with an empty document so the demo dataset does not load.
func NewStore(t *testing.T) *document.Store {
	t.Helper()
	snap := document.NewMemorySnapshotter()
	if err := snap.Save([]byte(`{}`)); err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	store, err := document.NewStore(snap, NewLogger())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return store
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	approved bool,
	subjects ...string,
) user.User {
	t.Helper()
	usr := user.User{
		ID:                core.NewID("u"),
		Name:              name,
		Email:             email,
		Role:              role,
		Subjects:          append([]string{}, subjects...),
		IsAdvisorApproved: approved,
		CreatedAt:         time.Now().UTC(),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateRequest(
	t *testing.T,
	repo request.Repository,
	studentID, subject, topic string,
	startsAt time.Time,
) request.Request {
	t.Helper()
	req := request.Request{
		ID:        core.NewID("req"),
		StudentID: studentID,
		Subject:   subject,
		Topic:     topic,
		StartsAt:  startsAt,
		Status:    request.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	req, err := repo.CreateRequest(req)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	return req
}
