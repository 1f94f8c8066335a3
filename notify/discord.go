package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordTransport sends a direct message to the Discord user id held in the recipient handle.
// Only the REST API is used, so no gateway connection is opened.
type DiscordTransport struct {
	session *discordgo.Session
}

func NewDiscordTransport(token string) (*DiscordTransport, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordTransport{session: s}, nil
}

func (t *DiscordTransport) Send(_ context.Context, to Recipient, msg Message) error {
	if to.Handle == "" {
		return fmt.Errorf("user %d has no discord id", to.UserID)
	}
	ch, err := t.session.UserChannelCreate(to.Handle)
	if err != nil {
		return fmt.Errorf("open discord dm: %w", err)
	}
	if _, err := t.session.ChannelMessageSend(ch.ID, "**"+msg.Title+"**\n"+msg.Body); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
