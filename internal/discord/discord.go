// Package discord is the boundary between the moderation core and the
// platform. Modules consume the narrow interfaces below; the Session type
// implements all of them over a discordgo session with best-effort
// semantics: transport and permission failures are written to the guild's
// diagnostic log and surface as nil results, never as raised errors.
package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Content   string
	Author    Member
}

type Member struct {
	ID          string
	Username    string
	Nick        string
	Bot         bool
	Permissions int64
}

// DisplayName prefers the guild nickname, like the member list does.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

func (m Member) CanManageMessages() bool {
	return m.Permissions&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) != 0
}

func (m Member) IsAdministrator() bool {
	return m.Permissions&discordgo.PermissionAdministrator != 0
}

type Channel struct {
	ID         string
	Name       string
	CategoryID string
}

type Role struct {
	ID   string
	Name string
}

type Reaction struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// VoiceStateChange carries a member's transition between voice channels.
// Before or After is nil when the member was not connected on that side.
type VoiceStateChange struct {
	GuildID string
	Member  Member
	Before  *Channel
	After   *Channel
}

// Command is the parsed invocation context handed to module operations.
type Command struct {
	GuildID   string
	ChannelID string
	Author    Member
	Args      string
	Prefix    string
}

type Messenger interface {
	SendMessage(ctx context.Context, guildID, channelID, content string) *Message
	SendEmbed(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) *Message
	DeleteMessage(ctx context.Context, msg Message)
	FetchMessage(ctx context.Context, guildID, channelID, messageID string) *Message
	PreviousMessage(ctx context.Context, guildID, channelID, beforeID string) *Message
	AddReaction(ctx context.Context, guildID, channelID, messageID, emoji string) error
}

type Directory interface {
	ResolveRole(guildID, token string) *Role
	ResolveMember(guildID, userID string) *Member
	GuildMembers(guildID string) []Member
	GuildName(guildID string) string
}

type RoleManager interface {
	GrantRole(ctx context.Context, guildID, userID, roleID string)
	RevokeRole(ctx context.Context, guildID, userID, roleID string)
}

type ChannelManager interface {
	CreateVoiceChannel(ctx context.Context, guildID, name, categoryID string, overwrites []*discordgo.PermissionOverwrite) *Channel
	DeleteChannel(ctx context.Context, guildID, channelID string)
	FindChannelByName(guildID, name string) *Channel
	ResolveChannel(guildID, token string) *Channel
	MoveMember(ctx context.Context, guildID, userID, channelID string)
}

type Prompter interface {
	// AwaitResponse blocks until the next message from authorID in
	// channelID, the timeout, or ctx cancellation. ok is false on timeout.
	AwaitResponse(ctx context.Context, channelID, authorID string, timeout time.Duration) (response string, ok bool)
}

// NormalizeEmoji converts a typed emoji token to the API form used both for
// attaching reactions and for comparing reaction events: unicode emoji stay
// as-is, custom emoji mentions ("<:name:id>", "<a:name:id>") become
// "name:id".
func NormalizeEmoji(token string) string {
	if !strings.HasPrefix(token, "<") || !strings.HasSuffix(token, ">") {
		return token
	}
	inner := strings.Trim(token, "<>")
	parts := strings.Split(inner, ":")
	if len(parts) != 3 {
		return token
	}
	return parts[1] + ":" + parts[2]
}
