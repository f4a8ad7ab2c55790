package document

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
)

// Dataset is the whole application state: one document owning every entity.
type Dataset struct {
	Users         []user.User
	CurrentUserID string
	Requests      []request.Request
	Sessions      []request.Session
	Chats         []request.Chat
	LastUpdate    time.Time
}

// userRecord is the wire form of a User. Unlike the domain type it carries
// the password hash, and IsAdvisorApproved is a pointer so that legacy
// records missing the field can be told apart from explicit false.
type userRecord struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	PasswordHash      []byte           `json:"passwordHash,omitempty"`
	Role              string           `json:"role"`
	Subjects          []string         `json:"subjects"`
	IsAdvisorApproved *bool            `json:"isAdvisorApproved,omitempty"`
	AdvisorSubject    string           `json:"advisorSubject,omitempty"`
	AdvisorKardex     *user.KardexMeta `json:"advisorKardex,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

type documentJSON struct {
	Users         []userRecord      `json:"users"`
	CurrentUserID string            `json:"currentUserId"`
	Requests      []request.Request `json:"requests"`
	Sessions      []request.Session `json:"sessions"`
	Chats         []request.Chat    `json:"chats"`
	LastUpdate    time.Time         `json:"lastUpdate"`
}

func encodeDocument(ds Dataset) documentJSON {
	users := make([]userRecord, 0, len(ds.Users))
	for _, u := range ds.Users {
		u := u
		users = append(users, userRecord{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			PasswordHash:      u.PasswordHash,
			Role:              u.Role,
			Subjects:          u.Subjects,
			IsAdvisorApproved: &u.IsAdvisorApproved,
			AdvisorSubject:    u.AdvisorSubject,
			AdvisorKardex:     u.AdvisorKardex,
			CreatedAt:         u.CreatedAt,
		})
	}
	return documentJSON{
		Users:         users,
		CurrentUserID: ds.CurrentUserID,
		Requests:      ds.Requests,
		Sessions:      ds.Sessions,
		Chats:         ds.Chats,
		LastUpdate:    ds.LastUpdate,
	}
}

// decodeDocument unmarshals a snapshot, normalizing what older or partial
// documents may be missing: nil entity slices become empty, users get
// Subjects and CreatedAt backfilled, and advisors from records predating the
// approval flow count as approved.
func decodeDocument(payload []byte) (Dataset, error) {
	var doc documentJSON
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Dataset{}, errors.Wrap(err, "decoding document")
	}

	ds := Dataset{
		CurrentUserID: doc.CurrentUserID,
		Requests:      doc.Requests,
		Sessions:      doc.Sessions,
		Chats:         doc.Chats,
		LastUpdate:    doc.LastUpdate,
	}

	ds.Users = make([]user.User, 0, len(doc.Users))
	for _, rec := range doc.Users {
		u := user.User{
			ID:             rec.ID,
			Name:           rec.Name,
			Email:          rec.Email,
			PasswordHash:   rec.PasswordHash,
			Role:           rec.Role,
			Subjects:       rec.Subjects,
			AdvisorSubject: rec.AdvisorSubject,
			AdvisorKardex:  rec.AdvisorKardex,
			CreatedAt:      rec.CreatedAt,
		}
		if rec.IsAdvisorApproved != nil {
			u.IsAdvisorApproved = *rec.IsAdvisorApproved
		} else if u.Role == user.RoleAdvisor {
			u.IsAdvisorApproved = true // legacy record
		}
		if u.Subjects == nil {
			u.Subjects = []string{}
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		ds.Users = append(ds.Users, u)
	}

	if ds.Requests == nil {
		ds.Requests = []request.Request{}
	}
	if ds.Sessions == nil {
		ds.Sessions = []request.Session{}
	}
	if ds.Chats == nil {
		ds.Chats = []request.Chat{}
	}
	if ds.LastUpdate.IsZero() {
		ds.LastUpdate = time.Now().UTC()
	}
	return ds, nil
}

// seedDataset returns the demo dataset used when no snapshot exists yet.
func seedDataset() Dataset {
	now := time.Now().UTC()
	users := []user.User{
		{
			ID:                "u-admin",
			Name:              "Admin Demo",
			Email:             "admin@demo.com",
			Role:              user.RoleAdmin,
			Subjects:          []string{},
			IsAdvisorApproved: true,
			CreatedAt:         now,
		},
		{
			ID:                "u-asesor",
			Name:              "Asesor Demo",
			Email:             "asesor@demo.com",
			Role:              user.RoleAdvisor,
			Subjects:          []string{"Algoritmia", "Programación Orientada a Objetos"},
			IsAdvisorApproved: true,
			CreatedAt:         now,
		},
		{
			ID:        "u-estudiante",
			Name:      "Estudiante Demo",
			Email:     "estudiante@demo.com",
			Role:      user.RoleStudent,
			Subjects:  []string{},
			CreatedAt: now,
		},
	}
	for i, pwd := range []string{"admin", "asesor", "estudiante"} {
		_ = users[i].SetPassword(pwd)
	}
	return Dataset{
		Users:      users,
		Requests:   []request.Request{},
		Sessions:   []request.Session{},
		Chats:      []request.Chat{},
		LastUpdate: now,
	}
}
