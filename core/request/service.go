package request

import (
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("request not found")
	ErrAlreadyProcessed = errors.New("request has already been processed")
	ErrChatNotFound     = errors.New("chat not found")
)

type (
	Repository interface {
		CreateRequest(req Request) (Request, error)
		GetRequestByID(id string) (Request, error)
		QueryAllRequests() ([]Request, error)
		// ScheduleRequest persists the scheduled request together with its
		// new session and chat in one document commit.
		ScheduleRequest(req Request, ses Session, chat Chat) error
		QueryAllSessions() ([]Session, error)
		QueryAllChats() ([]Chat, error)
		GetChatByID(id string) (Chat, error)
		AppendMessage(chatID string, msg Message) (Message, error)
	}

	// MeetingLinker creates a meeting link for a scheduled session.
	// Implementations must return an error rather than an empty link.
	MeetingLinker interface {
		CreateMeetingLink(subject string, startsAt time.Time, attendees ...mail.Address) (string, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		users   *user.Service
		mailSvc core.EmailService
		linker  MeetingLinker
		logger  core.Logger
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	users *user.Service,
	mailSvc core.EmailService,
	linker MeetingLinker,
	logger core.Logger,
) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		linker:  linker,
		logger:  logger,
	}
}

// Create registers a new pending help request.
func (svc *Service) Create(nr NewRequest) (Request, error) {
	req := Request{
		ID:        core.NewID("req"),
		StudentID: nr.StudentID,
		Subject:   nr.Subject,
		Topic:     nr.Topic,
		StartsAt:  nr.StartsAt,
		Notes:     nr.Notes,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateRequest(req)
}

// AssignAdvisor moves a pending request to scheduled and synthesizes its
// session and chat. The transition is terminal: a request can be assigned at
// most once, and a second call fails with ErrAlreadyProcessed.
func (svc *Service) AssignAdvisor(requestID, advisorID string) (Assignment, error) {
	req, err := svc.repo.GetRequestByID(requestID)
	if err != nil {
		return Assignment{}, err
	}
	if req.Status != StatusPending {
		return Assignment{}, ErrAlreadyProcessed
	}

	student, studentErr := svc.users.GetByID(req.StudentID)
	advisor, advisorErr := svc.users.GetByID(advisorID)

	now := time.Now().UTC()
	ses := Session{
		ID:          core.NewID("ses"),
		RequestID:   req.ID,
		StudentID:   req.StudentID,
		AdvisorID:   advisorID,
		StartsAt:    req.StartsAt,
		Status:      StatusScheduled,
		MeetingLink: svc.meetingLink(req, student, advisor),
		CreatedAt:   now,
	}
	chat := Chat{
		ID:        core.NewID("chat"),
		SessionID: ses.ID,
		StudentID: req.StudentID,
		AdvisorID: advisorID,
		Messages:  []Message{},
		CreatedAt: now,
	}
	req.Status = StatusScheduled
	req.AdvisorID = advisorID

	if err = svc.repo.ScheduleRequest(req, ses, chat); err != nil {
		return Assignment{}, errors.Wrap(err, "scheduling request")
	}

	if studentErr == nil {
		svc.notifyScheduled(student, ses, req.Subject)
	}
	if advisorErr == nil {
		svc.notifyScheduled(advisor, ses, req.Subject)
	}
	return Assignment{Request: req, Session: ses, Chat: chat}, nil
}

// meetingLink asks the meeting collaborator for a link and degrades to the
// static channel URL when the collaborator is unavailable.
func (svc *Service) meetingLink(req Request, student, advisor user.User) string {
	attendees := make([]mail.Address, 0, 2)
	if student.Email != "" {
		attendees = append(attendees, mail.Address{Name: student.Name, Address: student.Email})
	}
	if advisor.Email != "" {
		attendees = append(attendees, mail.Address{Name: advisor.Name, Address: advisor.Email})
	}

	link, err := svc.linker.CreateMeetingLink(req.Subject+": "+req.Topic, req.StartsAt, attendees...)
	if err != nil {
		svc.logger.Warn("creating meeting link failed, falling back to channel URL", err)
		return svc.conf.Graph.TeamsChannelURL
	}
	return link
}

func (svc *Service) notifyScheduled(usr user.User, ses Session, subject string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Tutoring session scheduled",
		TemplateName: "session-scheduled",
		TemplateData: struct {
			Name        string
			Subject     string
			StartsAt    string
			MeetingLink string
		}{usr.Name, subject, ses.StartsAt.Format(time.RFC1123), ses.MeetingLink},
	})
}

// ListForUser returns the role-scoped request view: students see their own
// requests, advisors see their assignments plus the unassigned pool, admins
// see everything.
func (svc *Service) ListForUser(usr user.User) ([]Request, error) {
	all, err := svc.repo.QueryAllRequests()
	if err != nil {
		return nil, err
	}
	reqs := make([]Request, 0, len(all))
	for _, req := range all {
		if CanView(usr, req) {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

// PoolForAdvisor narrows the unassigned pool to the subjects the advisor
// covers. An advisor with no configured subjects sees the whole pool.
func (svc *Service) PoolForAdvisor(usr user.User) ([]Request, error) {
	if !usr.CanAdvise() {
		return []Request{}, nil
	}
	all, err := svc.repo.QueryAllRequests()
	if err != nil {
		return nil, err
	}
	pool := make([]Request, 0, len(all))
	for _, req := range all {
		if req.AdvisorID != "" {
			continue
		}
		if len(usr.Subjects) == 0 || containsString(usr.Subjects, req.Subject) {
			pool = append(pool, req)
		}
	}
	return pool, nil
}

// VisibleSessions returns the sessions a user is party to; admins see all.
func (svc *Service) VisibleSessions(usr user.User) ([]Session, error) {
	all, err := svc.repo.QueryAllSessions()
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, len(all))
	for _, ses := range all {
		if CanView(usr, ses) {
			sessions = append(sessions, ses)
		}
	}
	return sessions, nil
}

// UpcomingSessions returns up to `limit` visible sessions starting at or
// after now, soonest first. Equal start times keep insertion order.
func (svc *Service) UpcomingSessions(usr user.User, limit int) ([]Session, error) {
	visible, err := svc.VisibleSessions(usr)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	upcoming := make([]Session, 0, len(visible))
	for _, ses := range visible {
		if !ses.StartsAt.Before(now) {
			upcoming = append(upcoming, ses)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].StartsAt.Before(upcoming[j].StartsAt) })

	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

// ChatsForUser returns the chats a user is party to; admins see all.
func (svc *Service) ChatsForUser(usr user.User) ([]Chat, error) {
	all, err := svc.repo.QueryAllChats()
	if err != nil {
		return nil, err
	}
	chats := make([]Chat, 0, len(all))
	for _, chat := range all {
		if CanView(usr, chat) {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (svc *Service) GetChat(id string) (Chat, error) {
	return svc.repo.GetChatByID(id)
}

// SendMessage appends a message to a chat. Text/attachment presence is the
// caller's rule (NewMessage.Validate); the engine only requires the chat to
// exist.
func (svc *Service) SendMessage(chatID, fromUserID, text string, attachment *Attachment) (Message, error) {
	if _, err := svc.repo.GetChatByID(chatID); err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:         core.NewID("msg"),
		FromUserID: fromUserID,
		Text:       text,
		SentAt:     time.Now().UTC(),
		Attachment: attachment,
	}
	return svc.repo.AppendMessage(chatID, msg)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
