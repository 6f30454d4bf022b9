package reactionroles

import (
	"context"
	"testing"
	"time"

	"muskrat/internal/discord"
	"muskrat/internal/discord/discordtest"
	"muskrat/internal/modules/audit"
	"muskrat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fixture struct {
	store     *discordtest.FakeStore
	messenger *discordtest.FakeMessenger
	directory *discordtest.FakeDirectory
	roles     *discordtest.FakeRoles
	channels  *discordtest.FakeChannels
	prompter  *discordtest.FakePrompter
	module    *Module
}

func newFixture(responses ...string) *fixture {
	f := &fixture{
		store:     discordtest.NewFakeStore("g1"),
		messenger: &discordtest.FakeMessenger{},
		directory: &discordtest.FakeDirectory{Roles: map[string]*discord.Role{}},
		roles:     &discordtest.FakeRoles{},
		channels:  &discordtest.FakeChannels{Resolvable: map[string]*discord.Channel{"#target": {ID: "target-ch", Name: "target"}}},
		prompter:  &discordtest.FakePrompter{Responses: responses},
	}
	f.module = New(120*time.Second, f.store, f.messenger, f.directory, f.roles, f.channels, f.prompter, audit.NewLogger(f.store, zap.NewNop()))
	return f
}

func moderatorCommand(args string) discord.Command {
	return discord.Command{
		GuildID:   "g1",
		ChannelID: "cmd-ch",
		Author:    discord.Member{ID: "mod", Permissions: discordgo.PermissionManageMessages},
		Args:      args,
	}
}

func TestCreatePostsToTargetAndPersists(t *testing.T) {
	f := newFixture("Pick your roles!", "@gamer 🎮", "done")
	f.directory.Roles["@gamer"] = &discord.Role{ID: "r-gamer", Name: "gamer"}

	f.module.Create(context.Background(), moderatorCommand("#target"))

	if len(f.messenger.SentTo) == 0 || !contains(f.messenger.SentTo, "target-ch") {
		t.Fatalf("message not posted to target channel: %v", f.messenger.SentTo)
	}
	if len(f.messenger.Reactions) != 1 || f.messenger.Reactions[0] != "🎮" {
		t.Fatalf("reaction not attached: %v", f.messenger.Reactions)
	}
	bindings := f.store.Guilds["g1"].ReactionRoles
	if len(bindings) != 1 || len(bindings[0].Pairs) != 1 || bindings[0].Pairs[0].RoleID != "r-gamer" {
		t.Fatalf("binding not persisted: %+v", bindings)
	}
	last := f.messenger.Sent[len(f.messenger.Sent)-1]
	if last != "Reaction Role successfully created! Head to <#target-ch> to see it!" {
		t.Fatalf("unexpected confirmation: %q", last)
	}
}

func TestCreateRequiresManageMessages(t *testing.T) {
	f := newFixture()

	f.module.Create(context.Background(), discord.Command{GuildID: "g1", ChannelID: "cmd-ch", Author: discord.Member{ID: "u1"}, Args: "#target"})

	if f.messenger.Sent[0] != permissionDenied {
		t.Fatalf("expected denial, got %q", f.messenger.Sent[0])
	}
}

func TestCreateRejectsUnknownChannel(t *testing.T) {
	f := newFixture()

	f.module.Create(context.Background(), moderatorCommand("#nowhere"))

	if f.messenger.Sent[0] != `Failed to parse "#nowhere" as a channel.` {
		t.Fatalf("unexpected reply: %q", f.messenger.Sent[0])
	}
}

func TestCreateTimeoutAborts(t *testing.T) {
	f := newFixture("Pick your roles!")

	f.module.Create(context.Background(), moderatorCommand("#target"))

	last := f.messenger.Sent[len(f.messenger.Sent)-1]
	if last != "Exiting Reaction Role creation." {
		t.Fatalf("unexpected reply: %q", last)
	}
	if len(f.store.Guilds["g1"].ReactionRoles) != 0 {
		t.Fatalf("binding persisted after abort")
	}
}

func TestCreateRetriesBadPairLines(t *testing.T) {
	f := newFixture("body", "not-a-pair", "@ghost 🎮", "@gamer 🎮", "done")
	f.directory.Roles["@gamer"] = &discord.Role{ID: "r-gamer", Name: "gamer"}

	f.module.Create(context.Background(), moderatorCommand("#target"))

	if !contains(f.messenger.Sent, "Could not parse role and emoji pair.") {
		t.Fatalf("missing parse retry: %v", f.messenger.Sent)
	}
	if !contains(f.messenger.Sent, `Failed to parse "@ghost" as a role.`) {
		t.Fatalf("missing role retry: %v", f.messenger.Sent)
	}
	bindings := f.store.Guilds["g1"].ReactionRoles
	if len(bindings) != 1 || len(bindings[0].Pairs) != 1 {
		t.Fatalf("bad lines consumed slots: %+v", bindings)
	}
}

func TestCreateSecondReactionFailureLeavesNoBinding(t *testing.T) {
	f := newFixture("body", "@a 🎮", "@b 💥", "done")
	f.directory.Roles["@a"] = &discord.Role{ID: "r-a"}
	f.directory.Roles["@b"] = &discord.Role{ID: "r-b"}
	f.messenger.FailEmoji = map[string]bool{"💥": true}

	f.module.Create(context.Background(), moderatorCommand("#target"))

	if len(f.store.Guilds["g1"].ReactionRoles) != 0 {
		t.Fatalf("binding persisted despite reaction failure")
	}
	if len(f.messenger.Deleted) != 1 {
		t.Fatalf("posted message not deleted")
	}
	last := f.messenger.Sent[len(f.messenger.Sent)-1]
	if last != "An error occured adding the reactions. See logs for more detail." {
		t.Fatalf("unexpected reply: %q", last)
	}
}

func TestCreateStoreFailureDeletesMessage(t *testing.T) {
	f := newFixture("body", "@a 🎮", "done")
	f.directory.Roles["@a"] = &discord.Role{ID: "r-a"}
	f.store.FailUpdate = true

	f.module.Create(context.Background(), moderatorCommand("#target"))

	if len(f.messenger.Deleted) != 1 {
		t.Fatalf("posted message not deleted")
	}
}

func TestCreateNormalizesCustomEmoji(t *testing.T) {
	f := newFixture("body", "@a <:flame:1234>", "done")
	f.directory.Roles["@a"] = &discord.Role{ID: "r-a"}

	f.module.Create(context.Background(), moderatorCommand("#target"))

	bindings := f.store.Guilds["g1"].ReactionRoles
	if len(bindings) != 1 || bindings[0].Pairs[0].Emoji != "flame:1234" {
		t.Fatalf("custom emoji not normalized: %+v", bindings)
	}
}

func reaction(messageID, emoji, userID string) discord.Reaction {
	return discord.Reaction{GuildID: "g1", ChannelID: "target-ch", MessageID: messageID, UserID: userID, Emoji: emoji}
}

func bindGamer(f *fixture) {
	f.store.Guilds["g1"].ReactionRoles = []storage.ReactionRole{
		{MessageID: "rr-msg", Pairs: []storage.RolePair{{RoleID: "r-gamer", Emoji: "🎮"}}},
	}
	f.directory.Members = map[string]*discord.Member{"u1": {ID: "u1"}}
	f.directory.Roles["r-gamer"] = &discord.Role{ID: "r-gamer"}
}

func TestReactionAddGrantsBoundRole(t *testing.T) {
	f := newFixture()
	bindGamer(f)

	f.module.HandleReactionAdd(context.Background(), reaction("rr-msg", "🎮", "u1"))

	if len(f.roles.Granted) != 1 || f.roles.Granted[0] != "u1:r-gamer" {
		t.Fatalf("role not granted: %v", f.roles.Granted)
	}
}

func TestReactionRemoveRevokesBoundRole(t *testing.T) {
	f := newFixture()
	bindGamer(f)

	f.module.HandleReactionRemove(context.Background(), reaction("rr-msg", "🎮", "u1"))

	if len(f.roles.Revoked) != 1 || f.roles.Revoked[0] != "u1:r-gamer" {
		t.Fatalf("role not revoked: %v", f.roles.Revoked)
	}
}

func TestReactionUnboundEmojiNoop(t *testing.T) {
	f := newFixture()
	bindGamer(f)

	f.module.HandleReactionAdd(context.Background(), reaction("rr-msg", "🔥", "u1"))
	f.module.HandleReactionAdd(context.Background(), reaction("other-msg", "🎮", "u1"))

	if len(f.roles.Granted) != 0 {
		t.Fatalf("role granted for unbound reaction: %v", f.roles.Granted)
	}
}

func TestReactionIgnoresBots(t *testing.T) {
	f := newFixture()
	bindGamer(f)
	f.directory.Members["bot"] = &discord.Member{ID: "bot", Bot: true}

	f.module.HandleReactionAdd(context.Background(), reaction("rr-msg", "🎮", "bot"))

	if len(f.roles.Granted) != 0 {
		t.Fatalf("role granted to bot")
	}
}

func TestMessageDeleteRemovesBinding(t *testing.T) {
	f := newFixture()
	bindGamer(f)

	f.module.HandleMessageDelete(context.Background(), "g1", "rr-msg")

	if len(f.store.Guilds["g1"].ReactionRoles) != 0 {
		t.Fatalf("binding survived message delete")
	}
	f.module.HandleReactionAdd(context.Background(), reaction("rr-msg", "🎮", "u1"))
	if len(f.roles.Granted) != 0 {
		t.Fatalf("role granted after binding removed")
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
