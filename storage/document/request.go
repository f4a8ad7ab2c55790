package document

import "github.com/peerhive/backend/core/request"

var _ request.Repository = (*Store)(nil)

func (s *Store) CreateRequest(req request.Request) (request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Requests = append(s.doc.Requests, req)
	s.commit()
	return req, nil
}

func (s *Store) GetRequestByID(id string) (request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.doc.Requests {
		if r.ID == id {
			return r, nil
		}
	}
	return request.Request{}, request.ErrNotFound
}

func (s *Store) QueryAllRequests() ([]request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs := make([]request.Request, len(s.doc.Requests))
	copy(reqs, s.doc.Requests)
	return reqs, nil
}

// ScheduleRequest updates the request and appends its session and chat as
// one logical transaction: a single lock hold, a single commit.
func (s *Store) ScheduleRequest(req request.Request, ses request.Session, chat request.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i, r := range s.doc.Requests {
		if r.ID == req.ID {
			s.doc.Requests[i] = req
			found = true
			break
		}
	}
	if !found {
		return request.ErrNotFound
	}

	s.doc.Sessions = append(s.doc.Sessions, ses)
	s.doc.Chats = append(s.doc.Chats, chat)
	s.commit()
	return nil
}

func (s *Store) QueryAllSessions() ([]request.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]request.Session, len(s.doc.Sessions))
	copy(sessions, s.doc.Sessions)
	return sessions, nil
}

func (s *Store) QueryAllChats() ([]request.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]request.Chat, 0, len(s.doc.Chats))
	for _, chat := range s.doc.Chats {
		chats = append(chats, copyChat(chat))
	}
	return chats, nil
}

func (s *Store) GetChatByID(id string) (request.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chat := range s.doc.Chats {
		if chat.ID == id {
			return copyChat(chat), nil
		}
	}
	return request.Chat{}, request.ErrChatNotFound
}

func (s *Store) AppendMessage(chatID string, msg request.Message) (request.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chat := range s.doc.Chats {
		if chat.ID == chatID {
			s.doc.Chats[i].Messages = append(s.doc.Chats[i].Messages, msg)
			s.commit()
			return msg, nil
		}
	}
	return request.Message{}, request.ErrChatNotFound
}

// copyChat detaches the message slice so callers cannot alias store state.
func copyChat(chat request.Chat) request.Chat {
	msgs := make([]request.Message, len(chat.Messages))
	copy(msgs, chat.Messages)
	chat.Messages = msgs
	return chat
}
