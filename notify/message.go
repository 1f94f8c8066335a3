package notify

import (
	"fmt"
	"time"

	"github.com/cppla/careping/models"
)

// Notice is what the engine wants said to a user.
type Notice struct {
	Kind        models.NotifyKind
	TaskID      uint
	Date        string
	RecipientID uint
	Subject     string // task title or relation name
	Actor       string // display name of the other party
	At          time.Time
}

// Message is a rendered notice ready for a transport.
type Message struct {
	Kind  models.NotifyKind
	Title string
	Body  string
}

// Recipient is a resolved push address.
type Recipient struct {
	UserID  uint
	Name    string
	Channel string
	Handle  string
}

// Render turns n into user-facing text.
func Render(n Notice) Message {
	at := n.At.Format("15:04")
	m := Message{Kind: n.Kind}
	switch n.Kind {
	case models.NotifyRemind:
		m.Title = "Check-in reminder"
		m.Body = fmt.Sprintf("%q is due at %s. Check in within the window.", n.Subject, at)
	case models.NotifyCheckInComplete:
		m.Title = "Check-in completed"
		m.Body = fmt.Sprintf("%s checked in for %q at %s.", n.Actor, n.Subject, at)
	case models.NotifyMakeUp:
		m.Title = "Late check-in"
		m.Body = fmt.Sprintf("%s checked in late for %q at %s.", n.Actor, n.Subject, at)
	case models.NotifyMissed:
		m.Title = "Check-in missed"
		m.Body = fmt.Sprintf("%s has not checked in for %q due at %s.", n.Actor, n.Subject, at)
	case models.NotifyUnbindRequested:
		m.Title = "Unbind requested"
		m.Body = fmt.Sprintf("%s asked to end %q. It takes effect at %s on %s unless withdrawn.",
			n.Actor, n.Subject, at, n.At.Format("2006-01-02"))
	case models.NotifyTaskAssigned:
		m.Title = "New task"
		m.Body = fmt.Sprintf("%s set %q for you at %s.", n.Actor, n.Subject, at)
	default:
		m.Title = string(n.Kind)
		m.Body = n.Subject
	}
	return m
}
