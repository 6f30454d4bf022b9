// Package phrase keeps a channel on-message: anything other than the
// configured phrase is deleted.
package phrase

import (
	"context"
	"strings"

	"muskrat/internal/discord"
)

type Module struct {
	phrase    string
	messenger discord.Messenger
}

func New(phrase string, messenger discord.Messenger) *Module {
	return &Module{phrase: strings.ToLower(phrase), messenger: messenger}
}

// HandleMessage deletes the message unless it matches the phrase,
// case-insensitively and with no surrounding slack. Bot authors get no
// exemption; the router already filters the bot's own messages.
func (m *Module) HandleMessage(ctx context.Context, msg discord.Message) {
	if strings.ToLower(msg.Content) != m.phrase {
		m.messenger.DeleteMessage(ctx, msg)
	}
}

// HandleMessageEdit deletes every edited message. An edit could turn the
// phrase into something else after the create-time check already passed.
func (m *Module) HandleMessageEdit(ctx context.Context, msg discord.Message) {
	m.messenger.DeleteMessage(ctx, msg)
}
