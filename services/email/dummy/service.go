package dummymail

import (
	"sync"

	"github.com/peerhive/backend/core"
)

// Service records rendered messages instead of sending them; for tests.
type Service struct {
	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

var _ core.EmailService = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			continue
		}
		if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
			svc.SentMessages = append(svc.SentMessages, *msg)
		}
	}
}

// Reset clears the recorded messages.
func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.SentMessages = nil
}
