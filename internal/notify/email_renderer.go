package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// RenderedMessage is a message ready for delivery, with a plain text body and
// an optional HTML alternative.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

type emailData struct {
	Title  string
	Report string
}

// HTMLEmailRenderer renders reports as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

// NewHTMLEmailRenderer creates a renderer with the default email template.
func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	t := template.Must(template.New("email").Parse(emailHTMLTemplate))
	return &HTMLEmailRenderer{tmpl: t}
}

// Render wraps report for email. The plain text part is the report itself.
func (r *HTMLEmailRenderer) Render(report string, ts time.Time) (*RenderedMessage, error) {
	subject := fmt.Sprintf("Gold Report: %s", ts.Format("2006-01-02 15:04"))

	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, emailData{Title: subject, Report: report}); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: subject,
		Text:    report,
		HTML:    htmlBuf.String(),
	}, nil
}
