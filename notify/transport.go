package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Channel names accepted in configuration and on users.
const (
	ChannelLog      = "log"
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
)

// LogTransport writes messages to the structured log. It is the default channel.
type LogTransport struct {
	log *zap.Logger
}

func NewLogTransport(log *zap.Logger) *LogTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, to Recipient, msg Message) error {
	t.log.Info("push",
		zap.Uint("recipient_id", to.UserID),
		zap.String("kind", string(msg.Kind)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}

// Router sends through the transport registered for the recipient's channel,
// falling back to the default channel when the user has none. A recipient without
// a handle always goes to the log channel.
type Router struct {
	transports map[string]Transport
	fallback   string
}

func NewRouter(fallback string) *Router {
	return &Router{transports: make(map[string]Transport), fallback: fallback}
}

// Register binds a transport to a channel name.
func (r *Router) Register(channel string, t Transport) *Router {
	r.transports[channel] = t
	return r
}

func (r *Router) Send(ctx context.Context, to Recipient, msg Message) error {
	ch := to.Channel
	if ch == "" {
		ch = r.fallback
	}
	if ch != ChannelLog && to.Handle == "" {
		// no address on any addressable channel
		ch = ChannelLog
	}
	t, ok := r.transports[ch]
	if !ok {
		return fmt.Errorf("no transport for channel %q", ch)
	}
	return t.Send(ctx, to, msg)
}
