package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/peerhive/backend/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleAdvisor = "advisor"
	RoleAdmin   = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleAdvisor, RoleAdmin}

	// SignupRoles are the roles a user may self-register with; admin is
	// only ever granted through ChangeRole.
	SignupRoles = []string{RoleStudent, RoleAdvisor}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleAdvisor: 20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Advisor", Value: RoleAdvisor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// KardexMeta holds the transcript evidence an advisor uploads at signup.
// Small files are inlined as a data URL; larger ones keep metadata only.
type KardexMeta struct {
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
	Size       int64     `json:"size"`
	DataURL    string    `json:"dataUrl,omitempty"`
	Status     string    `json:"status"`
}

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash []byte      `json:"-"`
	Role         string      `json:"role"`
	Subjects     []string    `json:"subjects"`
	// IsAdvisorApproved is only meaningful for advisors; an advisor with
	// IsAdvisorApproved=false is pending review and unprivileged.
	IsAdvisorApproved bool        `json:"isAdvisorApproved"`
	AdvisorSubject    string      `json:"advisorSubject,omitempty"`
	AdvisorKardex     *KardexMeta `json:"advisorKardex,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsAdvisor() bool {
	return u.Role == RoleAdvisor
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsPendingAdvisor reports whether the user self-signed up as an advisor and
// has not been approved yet.
func (u *User) IsPendingAdvisor() bool {
	return u.IsAdvisor() && !u.IsAdvisorApproved
}

// CanAdvise reports whether the user may pick up requests and configure
// tutoring subjects.
func (u *User) CanAdvise() bool {
	return u.IsAdmin() || (u.IsAdvisor() && u.IsAdvisorApproved)
}

// NewUser contains information needed to sign up a new User.
type NewUser struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required"`
	PasswordConfirm string      `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string      `json:"role" validate:"required,signuprole"`
	AdvisorSubject  string      `json:"advisor_subject" validate:"omitempty"`
	AdvisorKardex   *KardexMeta `json:"advisor_kardex,omitempty"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// UpdateProfile defines what information a user may change on their own profile.
type UpdateProfile struct {
	Name            string `json:"name"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

// ChangeRole is the admin payload for changing a user's role.
type ChangeRole struct {
	Role string `json:"role" validate:"required,role"`
}

func (cr *ChangeRole) Validate(validate *validator.Validate) error {
	cr.Role = core.CleanString(cr.Role, true /* lower */)
	return validate.Struct(cr)
}

// Stats summarizes the dataset for the admin dashboard.
type Stats struct {
	TotalUsers      int `json:"totalUsers"`
	TotalRequests   int `json:"totalRequests"`
	TotalSessions   int `json:"totalSessions"`
	PendingAdvisors int `json:"pendingAdvisors"`
}
