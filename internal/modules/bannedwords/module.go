// Package bannedwords deletes messages containing configured substrings.
// Members with the manage-messages capability bypass the filter, which also
// lets the bot render the list and moderators discuss the words.
package bannedwords

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"muskrat/internal/discord"
	"muskrat/internal/modules/audit"
	"muskrat/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const permissionDenied = "You don't have permission to use that command."

type Store interface {
	Guild(ctx context.Context, guildID string) (storage.GuildConfig, error)
	AddBannedWord(ctx context.Context, guildID, word string) error
	RemoveBannedWord(ctx context.Context, guildID, word string) error
	ResetBannedWords(ctx context.Context, guildID string) error
}

type Module struct {
	embedColor int
	store      Store
	messenger  discord.Messenger
	audit      *audit.Logger
}

func New(embedColor int, store Store, messenger discord.Messenger, auditLogger *audit.Logger) *Module {
	return &Module{embedColor: embedColor, store: store, messenger: messenger, audit: auditLogger}
}

// HandleMessage scans the message against the configured words in order and
// deletes it on the first case-insensitive substring match.
func (m *Module) HandleMessage(ctx context.Context, msg discord.Message) {
	if msg.Author.CanManageMessages() {
		return
	}

	guild, err := m.store.Guild(ctx, msg.GuildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, msg.GuildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	content := strings.ToLower(msg.Content)
	for _, word := range guild.BannedWords {
		if strings.Contains(content, strings.ToLower(word)) {
			m.messenger.DeleteMessage(ctx, msg)
			return
		}
	}
}

func (m *Module) Add(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}
	word := strings.TrimSpace(cmd.Args)
	if word == "" {
		return
	}

	if err := m.store.AddBannedWord(ctx, cmd.GuildID, word); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to add a banned word.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("%q is now a banned word.", word))
}

func (m *Module) Remove(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}
	word := strings.TrimSpace(cmd.Args)
	if word == "" {
		return
	}

	if err := m.store.RemoveBannedWord(ctx, cmd.GuildID, word); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to remove a banned word.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("%q is no longer a banned word.", word))
}

func (m *Module) Reset(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	if err := m.store.ResetBannedWords(ctx, cmd.GuildID); err != nil {
		m.reportStoreFailure(ctx, cmd, err, "Failed to reset banned words.")
		return
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Banned words have successfully been reset.")
}

func (m *Module) List(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	guild, err := m.store.Guild(ctx, cmd.GuildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, cmd.GuildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	words := append([]string(nil), guild.BannedWords...)
	sort.Strings(words)
	value := strings.Join(words, "\n")
	if value == "" {
		value = "Your server has no banned words."
	}

	embed := &discordgo.MessageEmbed{
		Title: "Banned Words",
		Color: m.embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "***Words***", Value: value, Inline: true},
		},
	}
	m.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, embed)
}

func (m *Module) reportStoreFailure(ctx context.Context, cmd discord.Command, err error, detail string) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	m.audit.Log(ctx, cmd.GuildID, detail+" "+err.Error())
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Something went wrong. See logs for more detail.")
}
