package document

import (
	"strings"

	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
)

var _ user.Repository = (*Store)(nil)

func (s *Store) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if !strings.EqualFold(u.Email, email) {
			continue
		}
		if !isExcluded(u, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (s *Store) CreateUser(usr user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Users = append(s.doc.Users, usr)
	s.commit()
	return usr, nil
}

func (s *Store) QueryAllUsers() ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]user.User, len(s.doc.Users))
	copy(users, s.doc.Users)
	return users, nil
}

func (s *Store) GetUserByID(id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) GetUserByEmail(email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) UpdateUser(usr user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.doc.Users {
		if u.ID == usr.ID {
			s.doc.Users[i] = usr
			s.commit()
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

// DeleteUser removes the user and cascades to every request, session and
// chat referencing them as student or advisor, in one commit. No entity may
// reference a deleted user afterward.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.doc.Users[:0]
	found := false
	for _, u := range s.doc.Users {
		if u.ID == id {
			found = true
			continue
		}
		users = append(users, u)
	}
	if !found {
		return user.ErrNotFound
	}
	s.doc.Users = users

	requests := make([]request.Request, 0, len(s.doc.Requests))
	for _, r := range s.doc.Requests {
		if r.StudentID == id || r.AdvisorID == id {
			continue
		}
		requests = append(requests, r)
	}
	s.doc.Requests = requests

	sessions := make([]request.Session, 0, len(s.doc.Sessions))
	for _, ses := range s.doc.Sessions {
		if ses.StudentID == id || ses.AdvisorID == id {
			continue
		}
		sessions = append(sessions, ses)
	}
	s.doc.Sessions = sessions

	chats := make([]request.Chat, 0, len(s.doc.Chats))
	for _, chat := range s.doc.Chats {
		if chat.StudentID == id || chat.AdvisorID == id {
			continue
		}
		chats = append(chats, chat)
	}
	s.doc.Chats = chats

	s.commit()
	return nil
}

func (s *Store) Stats() (user.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := user.Stats{
		TotalUsers:    len(s.doc.Users),
		TotalRequests: len(s.doc.Requests),
		TotalSessions: len(s.doc.Sessions),
	}
	for _, u := range s.doc.Users {
		if u.IsPendingAdvisor() {
			stats.PendingAdvisors++
		}
	}
	return stats, nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
