package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"muskrat/internal/config"
	"muskrat/internal/discord"
	"muskrat/internal/discord/discordtest"
	"muskrat/internal/modules/audit"
	"muskrat/internal/modules/bannedwords"
	"muskrat/internal/modules/counting"
	"muskrat/internal/modules/phrase"
	"muskrat/internal/modules/privatevc"
	"muskrat/internal/modules/reactionroles"
	"muskrat/internal/modules/welcome"
	"muskrat/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func newTestBot(store *discordtest.FakeStore, messenger *discordtest.FakeMessenger) *Bot {
	cfg := config.DefaultConfig()
	auditLogger := audit.NewLogger(store, zap.NewNop())
	directory := &discordtest.FakeDirectory{Roles: map[string]*discord.Role{}}
	channels := &discordtest.FakeChannels{Resolvable: map[string]*discord.Channel{}}
	roles := &discordtest.FakeRoles{}
	prompter := &discordtest.FakePrompter{}

	b := &Bot{
		cfg:       cfg,
		logger:    zap.NewNop(),
		store:     store,
		messenger: messenger,
		audit:     auditLogger,
		guildMu:   utils.NewKeyedMutex(),
	}
	b.counting = counting.New(cfg.Channels.Counting, cfg.EmbedColor, store, messenger, directory, channels, auditLogger)
	b.banned = bannedwords.New(cfg.EmbedColor, store, messenger, auditLogger)
	b.phrase = phrase.New(cfg.Channels.PhraseText, messenger)
	b.reactions = reactionroles.New(time.Duration(cfg.PromptTimeoutSeconds)*time.Second, store, messenger, directory, roles, channels, prompter, auditLogger)
	b.privatevc = privatevc.New(cfg.Channels.PrivateVCTrigger, channels)
	b.welcome = welcome.New(store, messenger, directory, roles, channels, auditLogger)
	return b
}

func command(content string, author discord.Member) discord.Message {
	return discord.Message{ID: "m1", ChannelID: "c1", GuildID: "g1", Content: content, Author: author}
}

func moderator() discord.Member {
	return discord.Member{ID: "mod", Permissions: discordgo.PermissionManageMessages}
}

func administrator() discord.Member {
	return discord.Member{ID: "admin", Permissions: discordgo.PermissionAdministrator}
}

func TestSplitToken(t *testing.T) {
	cases := []struct {
		input string
		token string
		rest  string
	}{
		{"bw add spam word", "bw", "add spam word"},
		{"  help  ", "help", ""},
		{"", "", ""},
		{"counting", "counting", ""},
	}
	for _, tc := range cases {
		token, rest := splitToken(tc.input)
		if token != tc.token || rest != tc.rest {
			t.Fatalf("splitToken(%q) = %q, %q", tc.input, token, rest)
		}
	}
}

func TestCommandRoutesToModule(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!bw add spam", moderator()))

	words := store.Guilds["g1"].BannedWords
	if len(words) != 1 || words[0] != "spam" {
		t.Fatalf("command not routed: %v", words)
	}
}

func TestUnknownFeatureIgnored(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!frobnicate now", moderator()))
	b.handleCommand(context.Background(), command("!!counting frobnicate", moderator()))

	if len(messenger.Sent) != 0 || len(messenger.Embeds) != 0 {
		t.Fatalf("unknown command produced output: %v", messenger.Sent)
	}
}

func TestBareFeatureShowsHelp(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!counting", moderator()))
	b.handleCommand(context.Background(), command("!!help", moderator()))

	if len(messenger.Embeds) != 2 {
		t.Fatalf("expected help embeds, got %d", len(messenger.Embeds))
	}
	if messenger.Embeds[0].Title != "Counting Help" {
		t.Fatalf("unexpected embed: %q", messenger.Embeds[0].Title)
	}
	if messenger.Embeds[1].Title != "**Muskrat Bot Commands**" {
		t.Fatalf("unexpected embed: %q", messenger.Embeds[1].Title)
	}
}

func TestLogsShowRendersHistory(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].Logs = []string{"first", "second", "third"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs show 2", moderator()))

	output := messenger.Sent[0]
	if !strings.HasPrefix(output, "```Server Logs (last 2)") {
		t.Fatalf("unexpected header: %q", output)
	}
	if strings.Contains(output, "first") || !strings.Contains(output, "second") || !strings.Contains(output, "third") {
		t.Fatalf("unexpected entries: %q", output)
	}
}

func TestLogsShowDefaultsToFullHistory(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].Logs = []string{"first"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs", moderator()))

	if !strings.HasPrefix(messenger.Sent[0], "```Server Logs (full history)") {
		t.Fatalf("unexpected output: %q", messenger.Sent[0])
	}
}

func TestLogsShowBadLimit(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs show many", moderator()))

	if messenger.Sent[0] != `Could not parse limit "many".` {
		t.Fatalf("unexpected reply: %q", messenger.Sent[0])
	}
}

func TestLogsAddAppendsUserEntry(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs add manual note", moderator()))

	logs := store.Guilds["g1"].Logs
	if len(logs) != 1 || !strings.Contains(logs[0], "[User Generated] manual note") {
		t.Fatalf("entry not appended: %v", logs)
	}
}

func TestLogsResetRequiresAdministrator(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].Logs = []string{"keep"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs reset", moderator()))

	if len(store.Guilds["g1"].Logs) != 1 {
		t.Fatalf("logs reset without permission")
	}
	if messenger.Sent[0] != permissionDenied {
		t.Fatalf("unexpected reply: %q", messenger.Sent[0])
	}
}

func TestLogsResetClearsHistory(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].Logs = []string{"old"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.handleCommand(context.Background(), command("!!logs reset", administrator()))

	if len(store.Guilds["g1"].Logs) != 0 {
		t.Fatalf("logs not cleared")
	}
	if messenger.Sent[0] != "Server logs have successfully been reset." {
		t.Fatalf("unexpected reply: %q", messenger.Sent[0])
	}
}

func TestPrefixedMessageStillFiltered(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].BannedWords = []string{"spam"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.routeMessage(context.Background(), command("!!counting lb spam", discord.Member{ID: "u1"}), "")

	if len(messenger.Deleted) != 1 {
		t.Fatalf("prefixed message escaped the banned-word filter")
	}
	if len(messenger.Embeds) != 1 {
		t.Fatalf("command not dispatched after filtering")
	}
}

func TestModeratorCommandBypassesFilter(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	store.Guilds["g1"].BannedWords = []string{"spam"}
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.routeMessage(context.Background(), command("!!bw add spamming", moderator()), "")

	if len(messenger.Deleted) != 0 {
		t.Fatalf("moderator command deleted")
	}
	words := store.Guilds["g1"].BannedWords
	if len(words) != 2 || words[1] != "spamming" {
		t.Fatalf("command not dispatched: %v", words)
	}
}

func TestCommandInCountingChannelDeleted(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)

	b.routeMessage(context.Background(), command("!!counting lb", discord.Member{ID: "u1"}), b.cfg.Channels.Counting)

	if len(messenger.Deleted) != 1 {
		t.Fatalf("non-integer command message kept in the counting channel")
	}
	if len(messenger.Embeds) != 1 {
		t.Fatalf("command not dispatched after deletion")
	}
}

func TestLogsCommandsRequireManageMessages(t *testing.T) {
	store := discordtest.NewFakeStore("g1")
	messenger := &discordtest.FakeMessenger{}
	b := newTestBot(store, messenger)
	plain := discord.Member{ID: "u1"}

	b.handleCommand(context.Background(), command("!!logs show", plain))
	b.handleCommand(context.Background(), command("!!logs add note", plain))

	if len(messenger.Sent) != 2 {
		t.Fatalf("expected two denials, got %d", len(messenger.Sent))
	}
	for _, reply := range messenger.Sent {
		if reply != permissionDenied {
			t.Fatalf("unexpected reply: %q", reply)
		}
	}
}
