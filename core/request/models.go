package request

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/peerhive/backend/core"
)

// Request statuses. A request is created pending and moves to scheduled
// exactly once, when an advisor is assigned; scheduled is terminal.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
)

type Request struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	StartsAt  time.Time `json:"datetimeISO"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"`
	// AdvisorID is empty iff Status is pending.
	AdvisorID string    `json:"advisorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is derived 1:1 from a scheduled Request, carrying its start time.
type Session struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId"`
	StudentID   string    `json:"studentId"`
	AdvisorID   string    `json:"advisorId"`
	StartsAt    time.Time `json:"datetimeISO"`
	Status      string    `json:"status"`
	MeetingLink string    `json:"meetingLink"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Chat is the 1:1 message thread attached to a Session.
type Chat struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	StudentID string    `json:"studentId"`
	AdvisorID string    `json:"advisorId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID         string      `json:"id"`
	FromUserID string      `json:"fromUserId"`
	Text       string      `json:"text"`
	SentAt     time.Time   `json:"timestampISO"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Attachment is a file sent with a chat message. Files up to
// maxInlineAttachmentSize are inlined as a data URL; larger files keep
// metadata only.
type Attachment struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	DataURL  string `json:"dataUrl,omitempty"`
	Status   string `json:"status"`
}

// Assignment is the result of assigning an advisor to a request: the
// updated request plus the session and chat synthesized from it.
type Assignment struct {
	Request Request `json:"request"`
	Session Session `json:"session"`
	Chat    Chat    `json:"chat"`
}

// NewRequest contains information needed to create a help request.
type NewRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Subject   string    `json:"subject" validate:"required"`
	Topic     string    `json:"topic" validate:"required"`
	StartsAt  time.Time `json:"datetime" validate:"required,future"`
	Notes     string    `json:"notes"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Subject = core.CleanString(nr.Subject)
	nr.Topic = core.CleanString(nr.Topic)
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// NewMessage contains information needed to post a chat message.
// At least one of Text or Attachment must be set.
type NewMessage struct {
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

func (nm *NewMessage) Validate() error {
	nm.Text = core.CleanString(nm.Text)
	if nm.Text == "" && nm.Attachment == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "text", Error: "either text or an attachment is required"})
	}
	return nil
}
