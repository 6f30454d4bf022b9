// Package privatevc creates and tears down private voice-channel pairs.
// Entering the trigger channel creates "Private - {name}" and
// "Waiting - {name}" in the trigger channel's category; leaving the private
// channel deletes both.
package privatevc

import (
	"context"

	"muskrat/internal/discord"

	"github.com/bwmarrin/discordgo"
)

type Module struct {
	triggerName string
	channels    discord.ChannelManager
}

func New(triggerName string, channels discord.ChannelManager) *Module {
	return &Module{triggerName: triggerName, channels: channels}
}

// HandleVoiceStateChange runs teardown before creation so that hopping
// straight from a private channel into the trigger channel works.
func (m *Module) HandleVoiceStateChange(ctx context.Context, change discord.VoiceStateChange) {
	privateName := "Private - " + change.Member.DisplayName()
	waitingName := "Waiting - " + change.Member.DisplayName()

	if change.Before != nil && change.Before.Name == privateName {
		m.teardown(ctx, change.GuildID, privateName, waitingName)
	}

	if change.After != nil && change.After.Name == m.triggerName {
		m.create(ctx, change, privateName, waitingName)
	}
}

// teardown deletes the private and waiting channels independently; one
// failing does not stop the other.
func (m *Module) teardown(ctx context.Context, guildID, privateName, waitingName string) {
	if private := m.channels.FindChannelByName(guildID, privateName); private != nil {
		m.channels.DeleteChannel(ctx, guildID, private.ID)
	}
	if waiting := m.channels.FindChannelByName(guildID, waitingName); waiting != nil {
		m.channels.DeleteChannel(ctx, guildID, waiting.ID)
	}
}

func (m *Module) create(ctx context.Context, change discord.VoiceStateChange, privateName, waitingName string) {
	ownerOverwrite := &discordgo.PermissionOverwrite{
		ID:    change.Member.ID,
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: discordgo.PermissionViewChannel | discordgo.PermissionVoiceMoveMembers,
	}
	// The @everyone role shares the guild's id.
	everyoneOverwrite := &discordgo.PermissionOverwrite{
		ID:   change.GuildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}

	private := m.channels.CreateVoiceChannel(ctx, change.GuildID, privateName, change.After.CategoryID,
		[]*discordgo.PermissionOverwrite{ownerOverwrite, everyoneOverwrite})
	if private == nil {
		return
	}

	waiting := m.channels.CreateVoiceChannel(ctx, change.GuildID, waitingName, change.After.CategoryID,
		[]*discordgo.PermissionOverwrite{ownerOverwrite})
	if waiting == nil {
		m.channels.DeleteChannel(ctx, change.GuildID, private.ID)
		return
	}

	m.channels.MoveMember(ctx, change.GuildID, change.Member.ID, private.ID)
}
