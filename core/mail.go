package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

// Mail templates, keyed by EmailMessage.TemplateName. Plain-text bodies are
// required; HTML alternatives are optional.
var (
	textTemplates = texttmpl.Must(texttmpl.New("mail").Parse(`
{{define "welcome"}}Hi {{.Name}},

Welcome to {{.AppName}}! Your account has been created.
{{if .PendingApproval}}Your advisor profile is under review. We will notify you once it has been approved.{{end}}{{end}}

{{define "session-scheduled"}}Hi {{.Name}},

Your tutoring session on "{{.Subject}}" has been scheduled for {{.StartsAt}}.
Join with this link: {{.MeetingLink}}{{end}}
`))

	htmlTemplates = htmltmpl.Must(htmltmpl.New("mail").Parse(`
{{define "welcome"}}<p>Hi {{.Name}},</p><p>Welcome to {{.AppName}}! Your account has been created.</p>{{if .PendingApproval}}<p>Your advisor profile is under review. We will notify you once it has been approved.</p>{{end}}{{end}}

{{define "session-scheduled"}}<p>Hi {{.Name}},</p><p>Your tutoring session on &quot;{{.Subject}}&quot; has been scheduled for {{.StartsAt}}.</p><p>Join with this <a href="{{.MeetingLink}}">meeting link</a>.</p>{{end}}
`))
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To           []mail.Address
		Cc           []mail.Address
		Bcc          []mail.Address
		Subject      string
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
		Attachments  []Attachment

		renderOnce sync.Once
	}

	// EmailService sends messages asynchronously; failures are reported
	// through the app Logger, never to the caller.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

// Render executes the message's templates into TextContent and HTMLContent.
// Messages without a TemplateName are left untouched.
func (msg *EmailMessage) Render() error {
	if msg.TemplateName == "" {
		return nil
	}
	var err error
	msg.renderOnce.Do(func() {
		var txt, html bytes.Buffer
		if err = textTemplates.ExecuteTemplate(&txt, msg.TemplateName, msg.TemplateData); err != nil {
			err = errors.Wrapf(err, "rendering text template %q", msg.TemplateName)
			return
		}
		msg.TextContent = txt.String()
		if hErr := htmlTemplates.ExecuteTemplate(&html, msg.TemplateName, msg.TemplateData); hErr == nil {
			msg.HTMLContent = html.String()
		}
	})
	return err
}

func (msg *EmailMessage) HasRecipients() bool {
	return len(msg.To) > 0 || len(msg.Cc) > 0 || len(msg.Bcc) > 0
}

func (msg *EmailMessage) HasContent() bool {
	return msg.TextContent != "" || msg.HTMLContent != "" || msg.TemplateName != ""
}

func (msg *EmailMessage) HasAttachments() bool {
	return len(msg.Attachments) > 0
}
