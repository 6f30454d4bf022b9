// Package welcome posts join/leave notifications, grants the configured
// welcome role and owns the welcome/leave configuration commands.
package welcome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"muskrat/internal/discord"
	"muskrat/internal/modules/audit"
	"muskrat/internal/storage"
)

const permissionDenied = "You don't have permission to use that command."

type Store interface {
	Guild(ctx context.Context, guildID string) (storage.GuildConfig, error)
	RegisterMember(ctx context.Context, guildID, memberID string) error
	SetWelcomeChannel(ctx context.Context, guildID, channelID string) error
	SetWelcomeRole(ctx context.Context, guildID, roleID string) error
	SetWelcomeMessage(ctx context.Context, guildID, message string) error
	SetLeaveChannel(ctx context.Context, guildID, channelID string) error
}

type Module struct {
	store     Store
	messenger discord.Messenger
	directory discord.Directory
	roles     discord.RoleManager
	channels  discord.ChannelManager
	audit     *audit.Logger
}

func New(store Store, messenger discord.Messenger, directory discord.Directory, roles discord.RoleManager, channels discord.ChannelManager, auditLogger *audit.Logger) *Module {
	return &Module{
		store:     store,
		messenger: messenger,
		directory: directory,
		roles:     roles,
		channels:  channels,
		audit:     auditLogger,
	}
}

// HandleMemberJoin registers the member for counting, posts the welcome
// message and grants the welcome role. The message and the role are
// independent; one failing does not block the other.
func (m *Module) HandleMemberJoin(ctx context.Context, guildID string, member discord.Member) {
	if err := m.store.RegisterMember(ctx, guildID, member.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.audit.Log(ctx, guildID, fmt.Sprintf("Failed to add member (id=%s) to the database: %s", member.ID, err.Error()))
	}

	guild, err := m.store.Guild(ctx, guildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, guildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	if guild.WelcomeChannelID != "" {
		content := fmt.Sprintf("Welcome <@%s> to **%s**! %s", member.ID, m.directory.GuildName(guildID), guild.WelcomeMessage)
		m.messenger.SendMessage(ctx, guildID, guild.WelcomeChannelID, content)
	}

	// A fresh guild document seeds welcome_role_id with the guild id,
	// which is @everyone and must not be granted.
	if guild.WelcomeRoleID != "" && guild.WelcomeRoleID != guildID {
		m.roles.GrantRole(ctx, guildID, member.ID, guild.WelcomeRoleID)
	}
}

// HandleMemberLeave posts the leave notification if a channel is configured.
func (m *Module) HandleMemberLeave(ctx context.Context, guildID string, member discord.Member) {
	guild, err := m.store.Guild(ctx, guildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, guildID, "Could not find guild data: "+err.Error())
		}
		return
	}
	if guild.LeaveChannelID == "" {
		return
	}
	m.messenger.SendMessage(ctx, guildID, guild.LeaveChannelID, fmt.Sprintf("<@%s> has left the server.", member.ID))
}

func (m *Module) SetChannel(ctx context.Context, cmd discord.Command) {
	m.setChannel(ctx, cmd, m.store.SetWelcomeChannel, "Welcome Channel successfully changed to <#%s>.")
}

func (m *Module) SetLeaveChannel(ctx context.Context, cmd discord.Command) {
	m.setChannel(ctx, cmd, m.store.SetLeaveChannel, "Leave Channel successfully changed to <#%s>.")
}

func (m *Module) setChannel(ctx context.Context, cmd discord.Command, set func(ctx context.Context, guildID, channelID string) error, confirmation string) {
	if !cmd.Author.IsAdministrator() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	token := strings.TrimSpace(cmd.Args)
	channel := m.channels.ResolveChannel(cmd.GuildID, token)
	if channel == nil {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Failed to parse %q as a channel.", token))
		return
	}

	if err := set(ctx, cmd.GuildID, channel.ID); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to change a notification channel.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf(confirmation, channel.ID))
}

func (m *Module) SetRole(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.IsAdministrator() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	token := strings.TrimSpace(cmd.Args)
	role := m.directory.ResolveRole(cmd.GuildID, token)
	if role == nil {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Failed to parse %q as a role.", token))
		return
	}

	if err := m.store.SetWelcomeRole(ctx, cmd.GuildID, role.ID); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to change welcome role.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Welcome Role successfully changed to %s.", role.Name))
}

func (m *Module) SetMessage(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.IsAdministrator() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	message := strings.TrimSpace(cmd.Args)
	if err := m.store.SetWelcomeMessage(ctx, cmd.GuildID, message); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to change welcome message.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Custom welcome message set to %q.", message))
}

func (m *Module) reportStoreFailure(ctx context.Context, cmd discord.Command, err error, detail string) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	m.audit.Log(ctx, cmd.GuildID, detail+" "+err.Error())
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Something went wrong. See logs for more detail.")
}
