// Package graphsvc is the Microsoft Graph collaborator: Outlook calendar
// events and Teams online meetings. The engine consumes it behind the
// request.MeetingLinker interface; callers degrade to fallbacks on error.
package graphsvc

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/peerhive/backend/core"
)

// TokenSource supplies the delegated Graph access token. The token itself
// never leaves the backend.
type TokenSource interface {
	Token() (string, error)
}

type (
	EventTime struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	}

	OnlineMeetingInfo struct {
		JoinURL string `json:"joinUrl"`
	}

	Event struct {
		ID              string             `json:"id"`
		Subject         string             `json:"subject"`
		Start           EventTime          `json:"start"`
		End             EventTime          `json:"end"`
		IsOnlineMeeting bool               `json:"isOnlineMeeting"`
		OnlineMeeting   *OnlineMeetingInfo `json:"onlineMeeting,omitempty"`
	}

	Meeting struct {
		Subject   string
		StartsAt  time.Time
		EndsAt    time.Time
		Attendees []mail.Address
	}

	CreatedMeeting struct {
		ID      string `json:"id"`
		JoinURL string `json:"joinUrl"`
		Subject string `json:"subject"`
	}

	Service struct {
		baseURL  string
		timezone string
		tokens   TokenSource
		logger   core.Logger
	}
)

func NewService(conf *core.Config, tokens TokenSource, logger core.Logger) *Service {
	return &Service{
		baseURL:  conf.Graph.BaseURL,
		timezone: conf.Graph.Timezone,
		tokens:   tokens,
		logger:   logger,
	}
}

func (svc *Service) headers(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
		"Prefer":        fmt.Sprintf("outlook.timezone=%q", svc.timezone),
	}
}

// HasAuthorization reports whether a Graph token is available for the
// current backend session.
func (svc *Service) HasAuthorization() bool {
	token, err := svc.tokens.Token()
	return err == nil && token != ""
}

// CalendarEvents fetches the user's Outlook calendar events in [from, to].
func (svc *Service) CalendarEvents(from, to time.Time) ([]Event, error) {
	token, err := svc.tokens.Token()
	if err != nil {
		return nil, errors.Wrap(err, "getting graph token")
	}

	req := rest.Request{
		Method:  rest.Get,
		BaseURL: svc.baseURL + "/me/calendar/events",
		Headers: svc.headers(token),
		QueryParams: map[string]string{
			"$select":  "id,subject,body,start,end,location,organizer,attendees,isOnlineMeeting,onlineMeeting",
			"$orderby": "start/dateTime",
			"$filter": fmt.Sprintf(
				"start/dateTime ge '%s' and end/dateTime le '%s'",
				from.Format("2006-01-02T15:04:05"), to.Format("2006-01-02T15:04:05"),
			),
		},
	}
	res, err := rest.Send(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching calendar events")
	}
	if res.StatusCode >= 400 {
		return nil, errors.Errorf("graph returned %d fetching calendar events", res.StatusCode)
	}

	var body struct {
		Value []Event `json:"value"`
	}
	if err = json.Unmarshal([]byte(res.Body), &body); err != nil {
		return nil, errors.Wrap(err, "decoding calendar events")
	}
	return body.Value, nil
}

// CreateMeeting creates a Teams online meeting.
func (svc *Service) CreateMeeting(m Meeting) (CreatedMeeting, error) {
	token, err := svc.tokens.Token()
	if err != nil {
		return CreatedMeeting{}, errors.Wrap(err, "getting graph token")
	}

	type attendee struct {
		UPN  string `json:"upn"`
		Role string `json:"role"`
	}
	payload := map[string]interface{}{
		"subject":       m.Subject,
		"startDateTime": m.StartsAt.UTC().Format(time.RFC3339),
		"endDateTime":   m.EndsAt.UTC().Format(time.RFC3339),
		"lobbyBypassSettings": map[string]interface{}{
			"scope":                 "organization",
			"isDialInBypassEnabled": true,
		},
	}
	if len(m.Attendees) > 0 {
		attendees := make([]attendee, 0, len(m.Attendees))
		for _, a := range m.Attendees {
			attendees = append(attendees, attendee{UPN: a.Address, Role: "attendee"})
		}
		payload["attendees"] = map[string]interface{}{"attendees": attendees}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CreatedMeeting{}, errors.Wrap(err, "encoding meeting")
	}

	res, err := rest.Send(rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + "/me/onlineMeetings",
		Headers: svc.headers(token),
		Body:    body,
	})
	if err != nil {
		return CreatedMeeting{}, errors.Wrap(err, "creating meeting")
	}
	if res.StatusCode >= 400 {
		return CreatedMeeting{}, errors.Errorf("graph returned %d creating meeting", res.StatusCode)
	}

	var created CreatedMeeting
	if err = json.Unmarshal([]byte(res.Body), &created); err != nil {
		return CreatedMeeting{}, errors.Wrap(err, "decoding meeting")
	}
	return created, nil
}

// CreateMeetingLink implements request.MeetingLinker: a one hour Teams
// meeting starting at the session time.
func (svc *Service) CreateMeetingLink(subject string, startsAt time.Time, attendees ...mail.Address) (string, error) {
	created, err := svc.CreateMeeting(Meeting{
		Subject:   subject,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(time.Hour),
		Attendees: attendees,
	})
	if err != nil {
		return "", err
	}
	if created.JoinURL == "" {
		return "", errors.New("graph meeting has no join url")
	}
	return created.JoinURL, nil
}
