package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"muskrat/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
)

// Session adapts a discordgo session to the collaborator interfaces.
type Session struct {
	session *discordgo.Session
	audit   *audit.Logger

	waitMu  sync.Mutex
	waiters map[waitKey]chan string
}

type waitKey struct {
	channelID string
	authorID  string
}

func NewSession(session *discordgo.Session, auditLogger *audit.Logger) *Session {
	return &Session{
		session: session,
		audit:   auditLogger,
		waiters: make(map[waitKey]chan string),
	}
}

func (s *Session) SendMessage(ctx context.Context, guildID, channelID, content string) *Message {
	msg, err := s.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		s.audit.Log(ctx, guildID, "Failed to send a message: "+err.Error())
		return nil
	}
	return s.toMessage(guildID, msg)
}

func (s *Session) SendEmbed(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) *Message {
	msg, err := s.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		s.audit.Log(ctx, guildID, "Failed to send an embed: "+err.Error())
		return nil
	}
	return s.toMessage(guildID, msg)
}

func (s *Session) DeleteMessage(ctx context.Context, msg Message) {
	if err := s.session.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, msg.GuildID, fmt.Sprintf("Failed to delete a message (id=%s): %s", msg.ID, err.Error()))
	}
}

func (s *Session) FetchMessage(ctx context.Context, guildID, channelID, messageID string) *Message {
	msg, err := s.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		s.audit.Log(ctx, guildID, fmt.Sprintf("Failed to get a message (id=%s): %s", messageID, err.Error()))
		return nil
	}
	return s.toMessage(guildID, msg)
}

func (s *Session) PreviousMessage(ctx context.Context, guildID, channelID, beforeID string) *Message {
	messages, err := s.session.ChannelMessages(channelID, 1, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		s.audit.Log(ctx, guildID, "Failed request to get channel history: "+err.Error())
		return nil
	}
	if len(messages) == 0 {
		return nil
	}
	return s.toMessage(guildID, messages[0])
}

func (s *Session) AddReaction(ctx context.Context, guildID, channelID, messageID, emoji string) error {
	if err := s.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, guildID, fmt.Sprintf("Failed to add a reaction %q: %s", emoji, err.Error()))
		return err
	}
	return nil
}

func (s *Session) GrantRole(ctx context.Context, guildID, userID, roleID string) {
	if err := s.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, guildID, "Failed to add a role: "+err.Error())
	}
}

func (s *Session) RevokeRole(ctx context.Context, guildID, userID, roleID string) {
	if err := s.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, guildID, "Failed to remove a role: "+err.Error())
	}
}

// ResolveRole accepts a role mention, a raw ID, or a role name. The first
// name match wins; ambiguity is not detected.
func (s *Session) ResolveRole(guildID, token string) *Role {
	guild := s.guild(guildID)
	if guild == nil || token == "" {
		return nil
	}
	id := token
	if strings.HasPrefix(token, "<@&") && strings.HasSuffix(token, ">") {
		id = strings.TrimSuffix(strings.TrimPrefix(token, "<@&"), ">")
	}
	for _, role := range guild.Roles {
		if role.ID == id || role.Name == token {
			return &Role{ID: role.ID, Name: role.Name}
		}
	}
	return nil
}

func (s *Session) ResolveMember(guildID, userID string) *Member {
	guild := s.guild(guildID)
	if guild == nil {
		return nil
	}
	member, err := s.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, _ = s.session.GuildMember(guildID, userID)
	}
	if member == nil || member.User == nil {
		return nil
	}
	resolved := s.toMember(guild, member)
	return &resolved
}

func (s *Session) GuildMembers(guildID string) []Member {
	guild := s.guild(guildID)
	if guild == nil {
		return nil
	}
	members := make([]Member, 0, len(guild.Members))
	for _, member := range guild.Members {
		if member == nil || member.User == nil {
			continue
		}
		members = append(members, s.toMember(guild, member))
	}
	return members
}

func (s *Session) GuildName(guildID string) string {
	if guild := s.guild(guildID); guild != nil {
		return guild.Name
	}
	return ""
}

func (s *Session) CreateVoiceChannel(ctx context.Context, guildID, name, categoryID string, overwrites []*discordgo.PermissionOverwrite) *Channel {
	channel, err := s.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             categoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		s.audit.Log(ctx, guildID, "Failed to create a channel: "+err.Error())
		return nil
	}
	return &Channel{ID: channel.ID, Name: channel.Name, CategoryID: channel.ParentID}
}

func (s *Session) DeleteChannel(ctx context.Context, guildID, channelID string) {
	if _, err := s.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, guildID, fmt.Sprintf("Failed to delete a channel (id=%s): %s", channelID, err.Error()))
	}
}

func (s *Session) FindChannelByName(guildID, name string) *Channel {
	guild := s.guild(guildID)
	if guild == nil {
		return nil
	}
	for _, channel := range guild.Channels {
		if channel != nil && channel.Name == name {
			return &Channel{ID: channel.ID, Name: channel.Name, CategoryID: channel.ParentID}
		}
	}
	return nil
}

// ResolveChannel accepts a channel mention, a raw ID, or a channel name.
func (s *Session) ResolveChannel(guildID, token string) *Channel {
	guild := s.guild(guildID)
	if guild == nil || token == "" {
		return nil
	}
	id := token
	if strings.HasPrefix(token, "<#") && strings.HasSuffix(token, ">") {
		id = strings.TrimSuffix(strings.TrimPrefix(token, "<#"), ">")
	}
	for _, channel := range guild.Channels {
		if channel == nil {
			continue
		}
		if channel.ID == id || channel.Name == token {
			return &Channel{ID: channel.ID, Name: channel.Name, CategoryID: channel.ParentID}
		}
	}
	return nil
}

func (s *Session) MoveMember(ctx context.Context, guildID, userID, channelID string) {
	if err := s.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx)); err != nil {
		s.audit.Log(ctx, guildID, "Failed to move a member: "+err.Error())
	}
}

func (s *Session) AwaitResponse(ctx context.Context, channelID, authorID string, timeout time.Duration) (string, bool) {
	key := waitKey{channelID: channelID, authorID: authorID}
	ch := make(chan string, 1)

	s.waitMu.Lock()
	s.waiters[key] = ch
	s.waitMu.Unlock()
	defer func() {
		s.waitMu.Lock()
		if s.waiters[key] == ch {
			delete(s.waiters, key)
		}
		s.waitMu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case response := <-ch:
		return response, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// DeliverResponse feeds an inbound message to a pending AwaitResponse call,
// if any. The message still flows through the moderation pipeline.
func (s *Session) DeliverResponse(channelID, authorID, content string) {
	key := waitKey{channelID: channelID, authorID: authorID}
	s.waitMu.Lock()
	ch := s.waiters[key]
	if ch != nil {
		delete(s.waiters, key)
	}
	s.waitMu.Unlock()
	if ch != nil {
		ch <- content
	}
}

func (s *Session) guild(guildID string) *discordgo.Guild {
	guild, err := s.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = s.session.Guild(guildID)
	}
	return guild
}

func (s *Session) toMessage(guildID string, msg *discordgo.Message) *Message {
	if msg == nil {
		return nil
	}
	converted := Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   guildID,
		Content:   msg.Content,
	}
	if msg.Author != nil {
		converted.Author = Member{ID: msg.Author.ID, Username: msg.Author.Username, Bot: msg.Author.Bot}
	}
	return &converted
}

func (s *Session) toMember(guild *discordgo.Guild, member *discordgo.Member) Member {
	return Member{
		ID:          member.User.ID,
		Username:    member.User.Username,
		Nick:        member.Nick,
		Bot:         member.User.Bot,
		Permissions: memberPermissions(guild, member),
	}
}

// memberPermissions folds guild-level permissions from the everyone role and
// the member's roles. The guild owner always has administrator.
func memberPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}
