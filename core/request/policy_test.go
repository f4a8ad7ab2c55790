package request

import (
	"testing"

	"github.com/peerhive/backend/core/user"
)

func TestCanView(t *testing.T) {
	student := user.User{ID: "u_student", Role: user.RoleStudent}
	other := user.User{ID: "u_other", Role: user.RoleStudent}
	advisor := user.User{ID: "u_advisor", Role: user.RoleAdvisor, IsAdvisorApproved: true}
	rival := user.User{ID: "u_rival", Role: user.RoleAdvisor, IsAdvisorApproved: true}
	pending := user.User{ID: "u_pending", Role: user.RoleAdvisor}
	admin := user.User{ID: "u_admin", Role: user.RoleAdmin}

	unassigned := Request{ID: "req_1", StudentID: student.ID, Status: StatusPending}
	assigned := Request{ID: "req_2", StudentID: student.ID, Status: StatusScheduled, AdvisorID: advisor.ID}
	session := Session{ID: "ses_1", StudentID: student.ID, AdvisorID: advisor.ID}
	chat := Chat{ID: "chat_1", StudentID: student.ID, AdvisorID: advisor.ID}

	tests := []struct {
		name string
		usr  user.User
		res  Resource
		want bool
	}{
		{name: "student sees own pending request", usr: student, res: unassigned, want: true},
		{name: "other student blocked", usr: other, res: unassigned, want: false},
		{name: "approved advisor sees the pool", usr: advisor, res: unassigned, want: true},
		{name: "pending advisor blocked from the pool", usr: pending, res: unassigned, want: false},
		{name: "admin sees everything", usr: admin, res: unassigned, want: true},

		{name: "assigned advisor sees their request", usr: advisor, res: assigned, want: true},
		{name: "rival advisor blocked once assigned", usr: rival, res: assigned, want: false},
		{name: "student sees own assigned request", usr: student, res: assigned, want: true},

		{name: "session party student", usr: student, res: session, want: true},
		{name: "session party advisor", usr: advisor, res: session, want: true},
		{name: "session non-party", usr: rival, res: session, want: false},
		{name: "session admin", usr: admin, res: session, want: true},

		{name: "chat party", usr: advisor, res: chat, want: true},
		{name: "chat non-party", usr: other, res: chat, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.usr, tt.res); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}
