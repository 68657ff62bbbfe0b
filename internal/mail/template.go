package mail

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Kind names an email template.
type Kind string

const (
	KindApplicationReceived  Kind = "application_received"
	KindApplicationSubmitted Kind = "application_submitted"
	KindApplicationApproved  Kind = "application_approved"
	KindApplicationRejected  Kind = "application_rejected"
)

// ErrUnknownTemplate is returned when no template exists for a kind.
var ErrUnknownTemplate = errors.New("unknown email template")

// TemplateData is the data available to every template.
type TemplateData struct {
	AppName       string   `json:"app_name"`
	BaseURL       string   `json:"base_url"`
	ApplicationID string   `json:"application_id,omitempty"`
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Company       string   `json:"company,omitempty"`
	Message       string   `json:"message,omitempty"`
	Interests     []string `json:"interests,omitempty"`
}

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var funcs = map[string]any{
	"join": strings.Join,
}

var templates = map[Kind]templateSet{
	KindApplicationReceived: mustTemplates(string(KindApplicationReceived),
		`We received your application to {{.AppName}}`,
		`Hi {{.FullName}},

Thanks for applying to {{.AppName}}. An administrator will review your application
and you will hear from us by email once a decision has been made.

{{.AppName}}
`,
		`<p>Hi {{.FullName}},</p>
<p>Thanks for applying to {{.AppName}}. An administrator will review your application
and you will hear from us by email once a decision has been made.</p>
<p>{{.AppName}}</p>
`),
	KindApplicationSubmitted: mustTemplates(string(KindApplicationSubmitted),
		`New membership application from {{.FullName}}`,
		`A new application is waiting for review.

Name:      {{.FullName}}
Email:     {{.Email}}
{{- if .Company}}
Company:   {{.Company}}{{end}}
{{- if .Phone}}
Phone:     {{.Phone}}{{end}}
{{- if .Interests}}
Interests: {{join .Interests ", "}}{{end}}
{{- if .Message}}

{{.Message}}{{end}}

Review it at {{.BaseURL}}/admin/applications
`,
		`<p>A new application is waiting for review.</p>
<ul>
<li>Name: {{.FullName}}</li>
<li>Email: {{.Email}}</li>
{{- if .Company}}
<li>Company: {{.Company}}</li>{{end}}
{{- if .Phone}}
<li>Phone: {{.Phone}}</li>{{end}}
{{- if .Interests}}
<li>Interests: {{join .Interests ", "}}</li>{{end}}
</ul>
{{- if .Message}}
<blockquote>{{.Message}}</blockquote>{{end}}
<p><a href="{{.BaseURL}}/admin/applications">Review applications</a></p>
`),
	KindApplicationApproved: mustTemplates(string(KindApplicationApproved),
		`Welcome to {{.AppName}}`,
		`Hi {{.FullName}},

Your application to {{.AppName}} has been approved. Sign in at {{.BaseURL}}/login
to get started.
`,
		`<p>Hi {{.FullName}},</p>
<p>Your application to {{.AppName}} has been approved.
<a href="{{.BaseURL}}/login">Sign in</a> to get started.</p>
`),
	KindApplicationRejected: mustTemplates(string(KindApplicationRejected),
		`Your application to {{.AppName}}`,
		`Hi {{.FullName}},

Thank you for your interest in {{.AppName}}. After review we are unable to accept
your application at this time.
`,
		`<p>Hi {{.FullName}},</p>
<p>Thank you for your interest in {{.AppName}}. After review we are unable to accept
your application at this time.</p>
`),
}

func mustTemplates(name, subject, text, html string) templateSet {
	return templateSet{
		subject: texttemplate.Must(texttemplate.New(name + ".subject").Parse(subject)),
		text:    texttemplate.Must(texttemplate.New(name + ".txt").Funcs(funcs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Funcs(funcs).Parse(html)),
	}
}

// Render produces a message addressed to toName/toEmail from the kind's template.
func Render(kind Kind, toName, toEmail string, data TemplateData) (Message, error) {
	set, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	var subject, text, html bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := set.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}

	return Message{
		ToName:   toName,
		ToEmail:  toEmail,
		Subject:  strings.TrimSpace(subject.String()),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
