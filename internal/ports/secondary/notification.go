package secondary

import (
	"context"
	"time"
)

// Reference identifies the entity a notification is about.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Notifier defines the secondary port for notification transport.
// Implementations must honour ctx cancellation; a send that outlives its
// deadline is a failure.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string, ref Reference) error
}

// EscalationNotice is the data a Renderer turns into a message.
type EscalationNotice struct {
	WorkItemID     string
	PolicyID       string
	Level          int
	Role           string
	MinutesOverdue int
	Due            time.Time
	Link           string
}

// LevelTag returns the short level label used in subjects, e.g. "L1".
func (n EscalationNotice) LevelTag() string {
	switch n.Level {
	case 1:
		return "L1"
	case 2:
		return "L2"
	}
	return "L?"
}

// Renderer turns an escalation notice into a subject and body.
type Renderer interface {
	Render(notice EscalationNotice) (subject, body string, err error)
}
