// Package reactionroles manages role self-assignment messages. A binding
// links a posted message to role/emoji pairs; reacting with a pair's emoji
// grants the role, removing the reaction revokes it, and deleting the
// message removes the binding.
package reactionroles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"muskrat/internal/discord"
	"muskrat/internal/modules/audit"
	"muskrat/internal/storage"
)

const permissionDenied = "You don't have permission to use that command."

type Store interface {
	Guild(ctx context.Context, guildID string) (storage.GuildConfig, error)
	AddReactionRole(ctx context.Context, guildID string, binding storage.ReactionRole) error
	RemoveReactionRole(ctx context.Context, guildID, messageID string) error
}

type Module struct {
	promptTimeout time.Duration
	store         Store
	messenger     discord.Messenger
	directory     discord.Directory
	roles         discord.RoleManager
	channels      discord.ChannelManager
	prompter      discord.Prompter
	audit         *audit.Logger
}

func New(promptTimeout time.Duration, store Store, messenger discord.Messenger, directory discord.Directory, roles discord.RoleManager, channels discord.ChannelManager, prompter discord.Prompter, auditLogger *audit.Logger) *Module {
	return &Module{
		promptTimeout: promptTimeout,
		store:         store,
		messenger:     messenger,
		directory:     directory,
		roles:         roles,
		channels:      channels,
		prompter:      prompter,
		audit:         auditLogger,
	}
}

// Create runs the interactive creation flow: resolve the target channel,
// collect the message body and the role/emoji pairs, post the message to
// the target channel and attach the reactions in order. A binding is only
// persisted if every reaction attached; any failure after posting deletes
// the message again.
func (m *Module) Create(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	token := strings.TrimSpace(cmd.Args)
	channel := m.channels.ResolveChannel(cmd.GuildID, token)
	if channel == nil {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Failed to parse %q as a channel.", token))
		return
	}

	body, ok := m.prompt(ctx, cmd, "Type the message used to create the Reaction Role.")
	if !ok {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Exiting Reaction Role creation.")
		return
	}

	pairs, ok := m.collectPairs(ctx, cmd)
	if !ok {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Exiting Reaction Role creation.")
		return
	}

	message := m.messenger.SendMessage(ctx, cmd.GuildID, channel.ID, body)
	if message == nil {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Failed to create message. See logs for more detail.")
		return
	}

	for _, pair := range pairs {
		if err := m.messenger.AddReaction(ctx, cmd.GuildID, message.ChannelID, message.ID, pair.Emoji); err != nil {
			m.audit.Log(ctx, cmd.GuildID, fmt.Sprintf("Failed to add a reaction %q: %s", pair.Emoji, err.Error()))
			m.messenger.DeleteMessage(ctx, *message)
			m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "An error occured adding the reactions. See logs for more detail.")
			return
		}
	}

	binding := storage.ReactionRole{MessageID: message.ID, Pairs: pairs}
	if err := m.store.AddReactionRole(ctx, cmd.GuildID, binding); err != nil {
		m.audit.Log(ctx, cmd.GuildID, "Failed to add a Reaction Role to the database: "+err.Error())
		m.messenger.DeleteMessage(ctx, *message)
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "An error occured adding the Reaction Role to the database. See logs for more detail.")
		return
	}

	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Reaction Role successfully created! Head to <#%s> to see it!", channel.ID))
}

func (m *Module) prompt(ctx context.Context, cmd discord.Command, text string) (string, bool) {
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, text)
	return m.prompter.AwaitResponse(ctx, cmd.ChannelID, cmd.Author.ID, m.promptTimeout)
}

// collectPairs loops until the author types "done". Unparseable lines and
// unresolvable roles re-prompt without consuming a slot; a timeout aborts
// the whole creation.
func (m *Module) collectPairs(ctx context.Context, cmd discord.Command) ([]storage.RolePair, bool) {
	var pairs []storage.RolePair
	for {
		response, ok := m.prompt(ctx, cmd, "What role and corresponding emoji would you like to add? Type `done` to finish.")
		if !ok {
			return nil, false
		}
		if strings.EqualFold(strings.TrimSpace(response), "done") {
			return pairs, true
		}

		fields := strings.Fields(response)
		if len(fields) != 2 {
			m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Could not parse role and emoji pair.")
			continue
		}

		role := m.directory.ResolveRole(cmd.GuildID, fields[0])
		if role == nil {
			m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Failed to parse %q as a role.", fields[0]))
			continue
		}

		pairs = append(pairs, storage.RolePair{RoleID: role.ID, Emoji: discord.NormalizeEmoji(fields[1])})
	}
}

// HandleReactionAdd grants the role bound to the reaction's emoji.
func (m *Module) HandleReactionAdd(ctx context.Context, reaction discord.Reaction) {
	m.applyReaction(ctx, reaction, m.roles.GrantRole)
}

// HandleReactionRemove revokes the role bound to the reaction's emoji.
func (m *Module) HandleReactionRemove(ctx context.Context, reaction discord.Reaction) {
	m.applyReaction(ctx, reaction, m.roles.RevokeRole)
}

func (m *Module) applyReaction(ctx context.Context, reaction discord.Reaction, apply func(ctx context.Context, guildID, userID, roleID string)) {
	guild, err := m.store.Guild(ctx, reaction.GuildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, reaction.GuildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	binding := guild.Binding(reaction.MessageID)
	if binding == nil {
		return
	}
	roleID, ok := binding.Role(reaction.Emoji)
	if !ok {
		return
	}

	member := m.directory.ResolveMember(reaction.GuildID, reaction.UserID)
	if member == nil || member.Bot {
		return
	}
	if m.directory.ResolveRole(reaction.GuildID, roleID) == nil {
		return
	}

	apply(ctx, reaction.GuildID, member.ID, roleID)
}

// HandleMessageDelete garbage-collects the binding for a deleted message.
func (m *Module) HandleMessageDelete(ctx context.Context, guildID, messageID string) {
	if err := m.store.RemoveReactionRole(ctx, guildID, messageID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.audit.Log(ctx, guildID, "Failed to remove a reaction role: "+err.Error())
	}
}
