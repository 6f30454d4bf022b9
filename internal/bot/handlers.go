package bot

import (
	"context"
	"strings"

	"muskrat/internal/discord"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
	if err := session.UpdateGameStatus(0, presenceText); err != nil {
		b.logger.Warn("presence update failed", zap.Error(err))
	}
}

// onGuildCreate fires on join and once per guild on every connect, so
// restarts converge guilds that are missing a document.
func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.ID == "" {
		return
	}
	ctx := context.Background()
	// welcome_role_id is seeded with the guild id, which doubles as the
	// @everyone role id and is treated as "no role configured".
	if err := b.store.EnsureGuild(ctx, event.Guild.ID, event.Guild.ID); err != nil {
		b.logger.Error("guild document creation failed", zap.String("guild", event.Guild.ID), zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.GuildID == "" {
		return
	}
	if session.State.User != nil && event.Author.ID == session.State.User.ID {
		return
	}

	// Prompt waiters consume a copy before any routing or locking; the
	// reaction-role creation flow holds no guild lock while it waits, so
	// delivering here cannot deadlock.
	b.adapter.DeliverResponse(event.ChannelID, event.Author.ID, event.Content)

	ctx := context.Background()
	b.routeMessage(ctx, b.toMessage(event.Message), b.channelName(event.ChannelID))
}

// routeMessage sends every message through the moderation pipeline; command
// invocations additionally reach the dispatcher. A prefixed message from a
// member without the bypass capability is still subject to the banned-word
// and channel filters, and the pipeline runs first so a slow interactive
// command cannot delay it.
func (b *Bot) routeMessage(ctx context.Context, msg discord.Message, channelName string) {
	b.withGuild(msg.GuildID, func() {
		b.banned.HandleMessage(ctx, msg)
		switch channelName {
		case b.cfg.Channels.Counting:
			b.counting.HandleMessage(ctx, msg)
		case b.cfg.Channels.Phrase:
			b.phrase.HandleMessage(ctx, msg)
		}
	})

	if !msg.Author.Bot && strings.HasPrefix(msg.Content, b.cfg.CommandPrefix) {
		b.handleCommand(ctx, msg)
	}
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	if event.Message == nil || event.GuildID == "" {
		return
	}
	ctx := context.Background()
	msg := b.toMessage(event.Message)

	// Edits are deleted regardless of author; the channels are append-only.
	b.withGuild(event.GuildID, func() {
		switch b.channelName(event.ChannelID) {
		case b.cfg.Channels.Counting:
			b.counting.HandleMessageEdit(ctx, msg)
		case b.cfg.Channels.Phrase:
			b.phrase.HandleMessageEdit(ctx, msg)
		}
	})
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()
	b.withGuild(event.GuildID, func() {
		b.reactions.HandleMessageDelete(ctx, event.GuildID, event.ID)
	})
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	b.handleReaction(event.MessageReaction, b.reactions.HandleReactionAdd)
}

func (b *Bot) onMessageReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	b.handleReaction(event.MessageReaction, b.reactions.HandleReactionRemove)
}

func (b *Bot) handleReaction(raw *discordgo.MessageReaction, handle func(ctx context.Context, reaction discord.Reaction)) {
	if raw == nil || raw.GuildID == "" {
		return
	}
	ctx := context.Background()
	reaction := discord.Reaction{
		GuildID:   raw.GuildID,
		ChannelID: raw.ChannelID,
		MessageID: raw.MessageID,
		UserID:    raw.UserID,
		Emoji:     raw.Emoji.APIName(),
	}
	b.withGuild(raw.GuildID, func() {
		handle(ctx, reaction)
	})
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.GuildID == "" {
		return
	}
	ctx := context.Background()
	member := discord.Member{
		ID:       event.User.ID,
		Username: event.User.Username,
		Nick:     event.Nick,
		Bot:      event.User.Bot,
	}
	b.withGuild(event.GuildID, func() {
		b.welcome.HandleMemberJoin(ctx, event.GuildID, member)
	})
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.User == nil || event.GuildID == "" {
		return
	}
	ctx := context.Background()
	member := discord.Member{ID: event.User.ID, Username: event.User.Username, Bot: event.User.Bot}
	b.withGuild(event.GuildID, func() {
		b.welcome.HandleMemberLeave(ctx, event.GuildID, member)
	})
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.GuildID == "" {
		return
	}
	member := b.adapter.ResolveMember(event.GuildID, event.UserID)
	if member == nil || member.Bot {
		return
	}

	var before, after *discord.Channel
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != "" {
		before = b.channel(event.BeforeUpdate.ChannelID)
	}
	if event.ChannelID != "" {
		after = b.channel(event.ChannelID)
	}
	if before == nil && after == nil {
		return
	}

	ctx := context.Background()
	change := discord.VoiceStateChange{
		GuildID: event.GuildID,
		Member:  *member,
		Before:  before,
		After:   after,
	}
	b.withGuild(event.GuildID, func() {
		b.privatevc.HandleVoiceStateChange(ctx, change)
	})
}

// toMessage converts a raw message, resolving the author through the guild
// state so permission checks see their roles.
func (b *Bot) toMessage(raw *discordgo.Message) discord.Message {
	msg := discord.Message{
		ID:        raw.ID,
		ChannelID: raw.ChannelID,
		GuildID:   raw.GuildID,
		Content:   raw.Content,
	}
	if raw.Author == nil {
		return msg
	}
	if member := b.adapter.ResolveMember(raw.GuildID, raw.Author.ID); member != nil {
		msg.Author = *member
	} else {
		msg.Author = discord.Member{ID: raw.Author.ID, Username: raw.Author.Username, Bot: raw.Author.Bot}
	}
	return msg
}

func (b *Bot) channelName(channelID string) string {
	if channel := b.channel(channelID); channel != nil {
		return channel.Name
	}
	return ""
}

func (b *Bot) channel(channelID string) *discord.Channel {
	channel, err := b.session.State.Channel(channelID)
	if err != nil || channel == nil {
		channel, _ = b.session.Channel(channelID)
	}
	if channel == nil {
		return nil
	}
	return &discord.Channel{ID: channel.ID, Name: channel.Name, CategoryID: channel.ParentID}
}
