package mailtemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

const verificationTemplate = "verification_email.html"

// Renderer renders the verification email body.
type Renderer struct {
	tmpl     *template.Template
	title    string
	validFor time.Duration
}

// NewRenderer parses the embedded templates. validFor is shown to the recipient.
func NewRenderer(title string, validFor time.Duration) (*Renderer, error) {
	t, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{tmpl: t, title: title, validFor: validFor}, nil
}

func (r *Renderer) Render(otp string) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, verificationTemplate, map[string]string{
		"Title":    r.title,
		"OTP":      otp,
		"ValidFor": humanDuration(r.validFor),
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", verificationTemplate, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	case d > 0:
		return d.String()
	default:
		return "a short time"
	}
}
