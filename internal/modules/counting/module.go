// Package counting enforces the strictly incrementing integer channel and
// tracks per-member success counts.
package counting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"muskrat/internal/discord"
	"muskrat/internal/modules/audit"
	"muskrat/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const permissionDenied = "You don't have permission to use that command."

type Store interface {
	Guild(ctx context.Context, guildID string) (storage.GuildConfig, error)
	RegisterMember(ctx context.Context, guildID, memberID string) error
	IncrementCount(ctx context.Context, guildID, memberID string) (bool, error)
	ResetCounts(ctx context.Context, guildID string) error
}

type Module struct {
	channelName string
	embedColor  int
	store       Store
	messenger   discord.Messenger
	directory   discord.Directory
	channels    discord.ChannelManager
	audit       *audit.Logger
}

func New(channelName string, embedColor int, store Store, messenger discord.Messenger, directory discord.Directory, channels discord.ChannelManager, auditLogger *audit.Logger) *Module {
	return &Module{
		channelName: channelName,
		embedColor:  embedColor,
		store:       store,
		messenger:   messenger,
		directory:   directory,
		channels:    channels,
		audit:       auditLogger,
	}
}

// HandleMessage validates a new message in the counting channel. The caller
// has already matched the channel by name.
func (m *Module) HandleMessage(ctx context.Context, msg discord.Message) {
	if msg.Author.Bot {
		return
	}

	value, err := strconv.Atoi(msg.Content)
	if err != nil {
		m.messenger.DeleteMessage(ctx, msg)
		return
	}

	// Fail open when history cannot be read: an infra error must not eat
	// a potentially valid count.
	previous := m.messenger.PreviousMessage(ctx, msg.GuildID, msg.ChannelID, msg.ID)
	if previous == nil {
		return
	}

	previousValue, err := strconv.Atoi(previous.Content)
	if err != nil {
		m.messenger.DeleteMessage(ctx, msg)
		m.audit.Log(ctx, msg.GuildID, fmt.Sprintf("The previous message in #%s was not an integer.", m.channelName))
		return
	}

	if value != previousValue+1 {
		m.messenger.DeleteMessage(ctx, msg)
		return
	}

	modified, err := m.store.IncrementCount(ctx, msg.GuildID, msg.Author.ID)
	if err != nil {
		m.audit.Log(ctx, msg.GuildID, fmt.Sprintf("Failed to update count for member (id=%s): %s", msg.Author.ID, err.Error()))
		return
	}
	if modified {
		return
	}

	// First correct count from an unknown member registers them at zero;
	// the triggering message itself is not counted.
	if err := m.store.RegisterMember(ctx, msg.GuildID, msg.Author.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.audit.Log(ctx, msg.GuildID, fmt.Sprintf("Failed to add member (id=%s) to the database: %s", msg.Author.ID, err.Error()))
	}
}

// HandleMessageEdit deletes any edited message in the counting channel; the
// channel is append-only.
func (m *Module) HandleMessageEdit(ctx context.Context, msg discord.Message) {
	m.messenger.DeleteMessage(ctx, msg)
}

// Reset zeroes every member's counter and re-seeds the channel with "1".
func (m *Module) Reset(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.IsAdministrator() {
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	if err := m.store.ResetCounts(ctx, cmd.GuildID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return
		}
		m.audit.Log(ctx, cmd.GuildID, "Failed to reset the count database: "+err.Error())
		m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Failed to reset the counting data. See logs for more detail.")
		return
	}

	if channel := m.channels.FindChannelByName(cmd.GuildID, m.channelName); channel != nil {
		m.messenger.SendMessage(ctx, cmd.GuildID, channel.ID, "1")
	}
	m.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Counting data has successfully been reset.")
}

// Leaderboard posts the ranking of members still present in the guild. Ties
// keep their original relative order. The top ten are listed; a requester
// ranked below them gets their own line appended.
func (m *Module) Leaderboard(ctx context.Context, cmd discord.Command) {
	guild, err := m.store.Guild(ctx, cmd.GuildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.audit.Log(ctx, cmd.GuildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	present := make(map[string]discord.Member)
	for _, member := range m.directory.GuildMembers(cmd.GuildID) {
		present[member.ID] = member
	}

	type entry struct {
		member  discord.Member
		counted int
	}
	entries := make([]entry, 0, len(guild.MemberData))
	for _, data := range guild.MemberData {
		member, ok := present[data.MemberID]
		if !ok {
			continue
		}
		entries = append(entries, entry{member: member, counted: data.Counted})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].counted > entries[j].counted
	})

	var builder strings.Builder
	requesterListed := false
	for i, e := range entries {
		if i < 10 {
			fmt.Fprintf(&builder, "%d. %s: %d\n", i+1, e.member.DisplayName(), e.counted)
			if e.member.ID == cmd.Author.ID {
				requesterListed = true
			}
			continue
		}
		if e.member.ID == cmd.Author.ID && !requesterListed {
			fmt.Fprintf(&builder, "%d. %s: %d\n", i+1, e.member.DisplayName(), e.counted)
			requesterListed = true
		}
	}

	ranking := builder.String()
	if ranking == "" {
		ranking = "No one has counted yet."
	}

	embed := &discordgo.MessageEmbed{
		Title: "Counting Leaderboard",
		Color: m.embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "***Top Counters***", Value: ranking, Inline: true},
		},
	}
	m.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, embed)
}
