// Package discordtest provides in-memory fakes of the collaborator
// interfaces and the guild store for module tests.
package discordtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"muskrat/internal/discord"
	"muskrat/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type FakeMessenger struct {
	Sent      []string
	SentTo    []string
	Embeds    []*discordgo.MessageEmbed
	EmbedsTo  []string
	Deleted   []string
	Fetched   map[string]*discord.Message
	Prev      *discord.Message
	FailSend  bool
	FailEmoji map[string]bool
	Reactions []string
	nextID    int
}

func (f *FakeMessenger) SendMessage(ctx context.Context, guildID, channelID, content string) *discord.Message {
	if f.FailSend {
		return nil
	}
	f.nextID++
	f.Sent = append(f.Sent, content)
	f.SentTo = append(f.SentTo, channelID)
	return &discord.Message{
		ID:        fmt.Sprintf("sent-%d", f.nextID),
		ChannelID: channelID,
		GuildID:   guildID,
		Content:   content,
	}
}

func (f *FakeMessenger) SendEmbed(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) *discord.Message {
	if f.FailSend {
		return nil
	}
	f.nextID++
	f.Embeds = append(f.Embeds, embed)
	f.EmbedsTo = append(f.EmbedsTo, channelID)
	return &discord.Message{ID: fmt.Sprintf("sent-%d", f.nextID), ChannelID: channelID, GuildID: guildID}
}

func (f *FakeMessenger) DeleteMessage(ctx context.Context, msg discord.Message) {
	f.Deleted = append(f.Deleted, msg.ID)
}

func (f *FakeMessenger) FetchMessage(ctx context.Context, guildID, channelID, messageID string) *discord.Message {
	return f.Fetched[messageID]
}

func (f *FakeMessenger) PreviousMessage(ctx context.Context, guildID, channelID, beforeID string) *discord.Message {
	return f.Prev
}

func (f *FakeMessenger) AddReaction(ctx context.Context, guildID, channelID, messageID, emoji string) error {
	if f.FailEmoji[emoji] {
		return errors.New("unknown emoji")
	}
	f.Reactions = append(f.Reactions, emoji)
	return nil
}

type FakeDirectory struct {
	Roles   map[string]*discord.Role
	Members map[string]*discord.Member
	Listed  []discord.Member
	Name    string
}

func (f *FakeDirectory) ResolveRole(guildID, token string) *discord.Role {
	return f.Roles[token]
}

func (f *FakeDirectory) ResolveMember(guildID, userID string) *discord.Member {
	return f.Members[userID]
}

func (f *FakeDirectory) GuildMembers(guildID string) []discord.Member {
	return f.Listed
}

func (f *FakeDirectory) GuildName(guildID string) string {
	return f.Name
}

type FakeRoles struct {
	Granted []string
	Revoked []string
}

func (f *FakeRoles) GrantRole(ctx context.Context, guildID, userID, roleID string) {
	f.Granted = append(f.Granted, userID+":"+roleID)
}

func (f *FakeRoles) RevokeRole(ctx context.Context, guildID, userID, roleID string) {
	f.Revoked = append(f.Revoked, userID+":"+roleID)
}

type FakeChannels struct {
	ByName     map[string]*discord.Channel
	Resolvable map[string]*discord.Channel
	Created    []string
	FailCreate map[string]bool
	Deleted    []string
	Moved      []string
	nextID     int
}

func (f *FakeChannels) CreateVoiceChannel(ctx context.Context, guildID, name, categoryID string, overwrites []*discordgo.PermissionOverwrite) *discord.Channel {
	if f.FailCreate[name] {
		return nil
	}
	f.nextID++
	channel := &discord.Channel{ID: fmt.Sprintf("vc-%d", f.nextID), Name: name, CategoryID: categoryID}
	f.Created = append(f.Created, name)
	if f.ByName == nil {
		f.ByName = make(map[string]*discord.Channel)
	}
	f.ByName[name] = channel
	return channel
}

func (f *FakeChannels) DeleteChannel(ctx context.Context, guildID, channelID string) {
	f.Deleted = append(f.Deleted, channelID)
}

func (f *FakeChannels) FindChannelByName(guildID, name string) *discord.Channel {
	return f.ByName[name]
}

func (f *FakeChannels) ResolveChannel(guildID, token string) *discord.Channel {
	return f.Resolvable[token]
}

func (f *FakeChannels) MoveMember(ctx context.Context, guildID, userID, channelID string) {
	f.Moved = append(f.Moved, userID+":"+channelID)
}

// FakePrompter returns scripted responses in order; when the script runs
// out, AwaitResponse times out.
type FakePrompter struct {
	Responses []string
	next      int
}

func (f *FakePrompter) AwaitResponse(ctx context.Context, channelID, authorID string, timeout time.Duration) (string, bool) {
	if f.next >= len(f.Responses) {
		return "", false
	}
	response := f.Responses[f.next]
	f.next++
	return response, true
}

// FakeStore mirrors the mongo store's update semantics on in-memory guild
// documents.
type FakeStore struct {
	Guilds     map[string]*storage.GuildConfig
	FailUpdate bool
}

func NewFakeStore(guildIDs ...string) *FakeStore {
	store := &FakeStore{Guilds: make(map[string]*storage.GuildConfig)}
	for _, id := range guildIDs {
		store.Guilds[id] = &storage.GuildConfig{GuildID: id}
	}
	return store
}

func (f *FakeStore) guild(guildID string) (*storage.GuildConfig, error) {
	if f.FailUpdate {
		return nil, errors.New("update not acknowledged")
	}
	guild := f.Guilds[guildID]
	if guild == nil {
		return nil, storage.ErrNotFound
	}
	return guild, nil
}

func (f *FakeStore) EnsureGuild(ctx context.Context, guildID, defaultRoleID string) error {
	if f.FailUpdate {
		return errors.New("update not acknowledged")
	}
	if f.Guilds[guildID] == nil {
		f.Guilds[guildID] = &storage.GuildConfig{GuildID: guildID, WelcomeRoleID: defaultRoleID}
	}
	return nil
}

func (f *FakeStore) Guild(ctx context.Context, guildID string) (storage.GuildConfig, error) {
	guild := f.Guilds[guildID]
	if guild == nil {
		return storage.GuildConfig{}, storage.ErrNotFound
	}
	return *guild, nil
}

func (f *FakeStore) RegisterMember(ctx context.Context, guildID, memberID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.MemberData = append(guild.MemberData, storage.MemberCount{MemberID: memberID})
	return nil
}

func (f *FakeStore) IncrementCount(ctx context.Context, guildID, memberID string) (bool, error) {
	if f.FailUpdate {
		return false, errors.New("update not acknowledged")
	}
	guild := f.Guilds[guildID]
	if guild == nil {
		return false, nil
	}
	for i := range guild.MemberData {
		if guild.MemberData[i].MemberID == memberID {
			guild.MemberData[i].Counted++
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStore) ResetCounts(ctx context.Context, guildID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	for i := range guild.MemberData {
		guild.MemberData[i].Counted = 0
	}
	return nil
}

func (f *FakeStore) AddBannedWord(ctx context.Context, guildID, word string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.BannedWords = append(guild.BannedWords, word)
	return nil
}

func (f *FakeStore) RemoveBannedWord(ctx context.Context, guildID, word string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	kept := guild.BannedWords[:0]
	for _, existing := range guild.BannedWords {
		if existing != word {
			kept = append(kept, existing)
		}
	}
	guild.BannedWords = kept
	return nil
}

func (f *FakeStore) ResetBannedWords(ctx context.Context, guildID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.BannedWords = nil
	return nil
}

func (f *FakeStore) AddReactionRole(ctx context.Context, guildID string, binding storage.ReactionRole) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.ReactionRoles = append(guild.ReactionRoles, binding)
	return nil
}

func (f *FakeStore) RemoveReactionRole(ctx context.Context, guildID, messageID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	kept := guild.ReactionRoles[:0]
	for _, binding := range guild.ReactionRoles {
		if binding.MessageID != messageID {
			kept = append(kept, binding)
		}
	}
	guild.ReactionRoles = kept
	return nil
}

func (f *FakeStore) SetWelcomeChannel(ctx context.Context, guildID, channelID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.WelcomeChannelID = channelID
	return nil
}

func (f *FakeStore) SetWelcomeRole(ctx context.Context, guildID, roleID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.WelcomeRoleID = roleID
	return nil
}

func (f *FakeStore) SetWelcomeMessage(ctx context.Context, guildID, message string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.WelcomeMessage = message
	return nil
}

func (f *FakeStore) SetLeaveChannel(ctx context.Context, guildID, channelID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.LeaveChannelID = channelID
	return nil
}

func (f *FakeStore) AppendLog(ctx context.Context, guildID, line string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.Logs = append(guild.Logs, line)
	return nil
}

func (f *FakeStore) ResetLogs(ctx context.Context, guildID string) error {
	guild, err := f.guild(guildID)
	if err != nil {
		return err
	}
	guild.Logs = nil
	return nil
}
