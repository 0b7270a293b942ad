// Package notifications renders and delivers the emails produced by the
// job processor: individual blood-request alerts and regional campaign
// digests.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hemolink/donorhub/internal/jobs"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// BloodRequestEmail is the data rendered into a blood-request alert.
type BloodRequestEmail struct {
	RecipientName string
	BloodGroup    string
	City          string
	Hospital      string
	Contact       string
	Urgent        bool
	Notes         string
}

// CampaignDigestEmail is the data rendered into a regional digest.
type CampaignDigestEmail struct {
	RecipientName string
	RegionName    string
	Date          time.Time
	Campaigns     []jobs.DigestCampaign
}

// Renderer renders notification emails from embedded templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":      titleCase,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"formatTime": formatTime,
		"formatDate": formatDate,
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
	}

	for _, name := range []string{"blood_request", "campaign_digest"} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// RenderBloodRequest renders a blood-request alert for one recipient.
// Returns subject and HTML body.
func (r *Renderer) RenderBloodRequest(data BloodRequestEmail) (subject, body string, err error) {
	subject = fmt.Sprintf("Blood donors needed: %s in %s", data.BloodGroup, titleCase(data.City))
	if data.Urgent {
		subject = "[Urgent] " + subject
	}

	body, err = r.render("blood_request", data)
	return subject, body, err
}

// RenderCampaignDigest renders a regional digest for one recipient.
// Returns subject and HTML body.
func (r *Renderer) RenderCampaignDigest(data CampaignDigestEmail) (subject, body string, err error) {
	subject = fmt.Sprintf("New donation campaigns in %s (%s)",
		titleCase(data.RegionName),
		data.Date.UTC().Format("Jan 2, 2006"),
	)

	body, err = r.render("campaign_digest", data)
	return subject, body, err
}

func (r *Renderer) render(name string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

// formatTime accepts both time.Time and *time.Time since digest campaign
// end times are optional.
func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("Jan 2, 2006 15:04 UTC")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("Jan 2, 2006 15:04 UTC")
	}
	return ""
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}
