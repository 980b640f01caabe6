package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/example/slaengine/internal/ports/secondary"
)

// PlainTextRenderer formats notices with fmt. It cannot fail.
type PlainTextRenderer struct{}

// Render builds the subject and body.
func (PlainTextRenderer) Render(n secondary.EscalationNotice) (string, string, error) {
	subject := fmt.Sprintf("[SLA %s] Work item %s is %d minutes overdue", n.LevelTag(), n.WorkItemID, n.MinutesOverdue)

	var b strings.Builder
	fmt.Fprintf(&b, "Work item %s has breached its SLA.\n\n", n.WorkItemID)
	fmt.Fprintf(&b, "Escalation level: %s (%s)\n", n.LevelTag(), n.Role)
	fmt.Fprintf(&b, "Minutes overdue:  %d\n", n.MinutesOverdue)
	if !n.Due.IsZero() {
		fmt.Fprintf(&b, "Due:              %s\n", n.Due.UTC().Format("2006-01-02 15:04 MST"))
	}
	if n.PolicyID != "" {
		fmt.Fprintf(&b, "Policy:           %s\n", n.PolicyID)
	}
	if n.Link != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Link)
	}
	return subject, b.String(), nil
}

// DefaultTemplate defines the "subject" and "body" templates used when no
// template file is configured.
const DefaultTemplate = `{{define "subject"}}[SLA {{.LevelTag}}] {{.WorkItemID}} overdue by {{.MinutesOverdue}} min{{end}}
{{- define "body"}}Work item {{.WorkItemID}} is {{.MinutesOverdue}} minutes past its SLA due time.
Escalated to: {{.Role}} ({{.LevelTag}})
{{- if not .Due.IsZero}}
Due: {{.Due.UTC.Format "2006-01-02 15:04 MST"}}{{end}}
{{- if .PolicyID}}
Policy: {{.PolicyID}}{{end}}
{{- if .Link}}

Open: {{.Link}}{{end}}
{{end}}`

// TemplateRenderer renders notices with text/template and falls back to
// another Renderer when execution fails.
type TemplateRenderer struct {
	tmpl     *template.Template
	fallback secondary.Renderer
	logger   *zap.Logger
}

// NewTemplateRenderer parses src, which must define "subject" and "body".
func NewTemplateRenderer(src string, fallback secondary.Renderer, logger *zap.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.New("escalation").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse escalation template: %w", err)
	}
	for _, name := range []string{"subject", "body"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("escalation template must define %q", name)
		}
	}
	if fallback == nil {
		fallback = PlainTextRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateRenderer{tmpl: tmpl, fallback: fallback, logger: logger.Named("render")}, nil
}

// Render executes the templates, or delegates to the fallback.
func (r *TemplateRenderer) Render(n secondary.EscalationNotice) (string, string, error) {
	subject, err := r.execute("subject", n)
	if err == nil {
		var body string
		if body, err = r.execute("body", n); err == nil {
			return strings.TrimSpace(subject), body, nil
		}
	}
	r.logger.Warn("template render failed, using fallback",
		zap.String("work_item_id", n.WorkItemID),
		zap.Int("level", n.Level),
		zap.Error(err),
	)
	return r.fallback.Render(n)
}

func (r *TemplateRenderer) execute(name string, n secondary.EscalationNotice) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	_ secondary.Renderer = PlainTextRenderer{}
	_ secondary.Renderer = (*TemplateRenderer)(nil)
)
