package request

import "github.com/peerhive/backend/core/user"

// Resource is anything with role-scoped visibility.
type Resource interface {
	VisibleTo(usr user.User) bool
}

// CanView is the single visibility policy: admins see everything, everyone
// else sees what the resource grants them.
func CanView(usr user.User, res Resource) bool {
	return usr.IsAdmin() || res.VisibleTo(usr)
}

// VisibleTo grants a request to its student, its assigned advisor, and,
// while unassigned, to any approved advisor (the candidate pool).
func (r Request) VisibleTo(usr user.User) bool {
	if r.StudentID == usr.ID || (r.AdvisorID != "" && r.AdvisorID == usr.ID) {
		return true
	}
	return r.AdvisorID == "" && usr.CanAdvise()
}

func (s Session) VisibleTo(usr user.User) bool {
	return s.StudentID == usr.ID || s.AdvisorID == usr.ID
}

func (c Chat) VisibleTo(usr user.User) bool {
	return c.StudentID == usr.ID || c.AdvisorID == usr.ID
}
