package user

import (
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdvisorPending     = errors.New("advisor account is pending approval")
	ErrNotAdvisor         = errors.New("only advisors can configure tutoring subjects")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		// GetUserByEmail matches case-insensitively; first match wins.
		GetUserByEmail(email string) (User, error)
		UpdateUser(user User) (User, error)
		// DeleteUser removes the user and cascades to every request, session
		// and chat referencing them as student or advisor.
		DeleteUser(id string) error
		Stats() (Stats, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{conf: conf, repo: repo, mailSvc: mailSvc}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Signup self-registers a new user. Advisors start unapproved and must be
// reviewed by an admin before they can log in.
func (svc *Service) Signup(nu NewUser) (User, error) {
	return svc.create(nu, false)
}

// Create registers a new user on behalf of an admin; advisor accounts
// created this way are approved immediately.
func (svc *Service) Create(nu NewUser) (User, error) {
	return svc.create(nu, true)
}

func (svc *Service) create(nu NewUser, byAdmin bool) (User, error) {
	if err := svc.checkUniqueness(nu.Email); err != nil {
		return User{}, err
	}

	usr := User{
		ID:                core.NewID("u"),
		Name:              nu.Name,
		Email:             nu.Email,
		Role:              nu.Role,
		Subjects:          []string{},
		AdvisorSubject:    nu.AdvisorSubject,
		AdvisorKardex:     nu.AdvisorKardex,
		IsAdvisorApproved: byAdmin && nu.Role == RoleAdvisor,
		CreatedAt:         time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct {
			Name            string
			AppName         string
			PendingApproval bool
		}{usr.Name, svc.conf.AppName, usr.IsPendingAdvisor()},
	})
	return usr, nil
}

// Authenticate checks the user's credentials. Pending advisors are rejected
// until an admin approves them.
func (svc *Service) Authenticate(email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if usr.IsPendingAdvisor() {
		return User{}, ErrAdvisorPending
	}
	return usr, nil
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

// UpdateProfile applies self-service profile changes.
func (svc *Service) UpdateProfile(id string, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if up.Name != "" {
		usr.Name = up.Name
	}
	if up.Password != "" {
		if err = usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(usr)
}

// ChangeRole sets a user's role. Leaving the advisor role clears the
// advisor-only fields; an admin-granted advisor role is auto-approved,
// unlike self-signup which starts pending.
func (svc *Service) ChangeRole(id, newRole string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Role = newRole
	if newRole == RoleAdvisor {
		usr.IsAdvisorApproved = true
	} else {
		usr.IsAdvisorApproved = false
		usr.AdvisorSubject = ""
		usr.AdvisorKardex = nil
	}
	return svc.repo.UpdateUser(usr)
}

// ApproveAdvisor marks a pending advisor as approved.
func (svc *Service) ApproveAdvisor(id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.IsAdvisorApproved = true
	return svc.repo.UpdateUser(usr)
}

// RejectAdvisor demotes a pending advisor back to student and clears the
// advisor-only fields.
func (svc *Service) RejectAdvisor(id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Role = RoleStudent
	usr.IsAdvisorApproved = false
	usr.AdvisorSubject = ""
	usr.AdvisorKardex = nil
	return svc.repo.UpdateUser(usr)
}

// SetSubjects configures the tutoring subjects an advisor covers.
func (svc *Service) SetSubjects(id string, subjects []string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if !usr.CanAdvise() {
		return User{}, ErrNotAdvisor
	}
	cleaned := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if s = core.CleanString(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	usr.Subjects = cleaned
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) Delete(id string) error {
	return svc.repo.DeleteUser(id)
}

func (svc *Service) Stats() (Stats, error) {
	return svc.repo.Stats()
}
