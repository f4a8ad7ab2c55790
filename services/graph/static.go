package graphsvc

import (
	"net/mail"
	"time"
)

// StaticLinker hands out a fixed channel URL instead of creating per-session
// meetings; the fallback when no Graph authorization is configured.
type StaticLinker struct {
	URL string
}

func (l StaticLinker) CreateMeetingLink(string, time.Time, ...mail.Address) (string, error) {
	return l.URL, nil
}

// StaticTokenSource returns a fixed token; an empty token means no
// authorization.
type StaticTokenSource string

func (ts StaticTokenSource) Token() (string, error) {
	return string(ts), nil
}
