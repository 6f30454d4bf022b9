package privatevc

import (
	"context"
	"testing"

	"muskrat/internal/discord"
	"muskrat/internal/discord/discordtest"
)

const trigger = "Create Private VC"

func enter(member discord.Member, channel *discord.Channel) discord.VoiceStateChange {
	return discord.VoiceStateChange{GuildID: "g1", Member: member, After: channel}
}

func leave(member discord.Member, channel *discord.Channel) discord.VoiceStateChange {
	return discord.VoiceStateChange{GuildID: "g1", Member: member, Before: channel}
}

func TestCreatesPairAndMovesOwner(t *testing.T) {
	channels := &discordtest.FakeChannels{}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat"}

	module.HandleVoiceStateChange(context.Background(), enter(owner, &discord.Channel{ID: "t1", Name: trigger, CategoryID: "cat1"}))

	if len(channels.Created) != 2 || channels.Created[0] != "Private - muskrat" || channels.Created[1] != "Waiting - muskrat" {
		t.Fatalf("unexpected channels: %v", channels.Created)
	}
	private := channels.ByName["Private - muskrat"]
	if private.CategoryID != "cat1" {
		t.Fatalf("private channel outside trigger category: %q", private.CategoryID)
	}
	if len(channels.Moved) != 1 || channels.Moved[0] != "u1:"+private.ID {
		t.Fatalf("owner not moved: %v", channels.Moved)
	}
}

func TestNicknamePreferredForNames(t *testing.T) {
	channels := &discordtest.FakeChannels{}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat", Nick: "ratking"}

	module.HandleVoiceStateChange(context.Background(), enter(owner, &discord.Channel{ID: "t1", Name: trigger}))

	if channels.Created[0] != "Private - ratking" {
		t.Fatalf("nickname not used: %v", channels.Created)
	}
}

func TestPrivateFailureCreatesNothing(t *testing.T) {
	channels := &discordtest.FakeChannels{FailCreate: map[string]bool{"Private - muskrat": true}}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat"}

	module.HandleVoiceStateChange(context.Background(), enter(owner, &discord.Channel{ID: "t1", Name: trigger}))

	if len(channels.Created) != 0 || len(channels.Moved) != 0 {
		t.Fatalf("expected full abort: created=%v moved=%v", channels.Created, channels.Moved)
	}
}

func TestWaitingFailureRollsBackPrivate(t *testing.T) {
	channels := &discordtest.FakeChannels{FailCreate: map[string]bool{"Waiting - muskrat": true}}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat"}

	module.HandleVoiceStateChange(context.Background(), enter(owner, &discord.Channel{ID: "t1", Name: trigger}))

	private := channels.ByName["Private - muskrat"]
	if len(channels.Deleted) != 1 || channels.Deleted[0] != private.ID {
		t.Fatalf("private channel not rolled back: %v", channels.Deleted)
	}
	if len(channels.Moved) != 0 {
		t.Fatalf("member moved despite rollback")
	}
}

func TestLeavingPrivateDeletesBoth(t *testing.T) {
	channels := &discordtest.FakeChannels{ByName: map[string]*discord.Channel{
		"Private - muskrat": {ID: "p1", Name: "Private - muskrat"},
		"Waiting - muskrat": {ID: "w1", Name: "Waiting - muskrat"},
	}}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat"}

	module.HandleVoiceStateChange(context.Background(), leave(owner, channels.ByName["Private - muskrat"]))

	if len(channels.Deleted) != 2 {
		t.Fatalf("expected both deletions: %v", channels.Deleted)
	}
}

func TestOrphanWaitingDeletedAlone(t *testing.T) {
	channels := &discordtest.FakeChannels{ByName: map[string]*discord.Channel{
		"Waiting - muskrat": {ID: "w1", Name: "Waiting - muskrat"},
	}}
	module := New(trigger, channels)
	owner := discord.Member{ID: "u1", Username: "muskrat"}

	module.HandleVoiceStateChange(context.Background(), leave(owner, &discord.Channel{ID: "p1", Name: "Private - muskrat"}))

	if len(channels.Deleted) != 1 || channels.Deleted[0] != "w1" {
		t.Fatalf("waiting channel not deleted: %v", channels.Deleted)
	}
}

func TestOtherMembersLeavingDoNotTearDown(t *testing.T) {
	channels := &discordtest.FakeChannels{ByName: map[string]*discord.Channel{
		"Private - muskrat": {ID: "p1", Name: "Private - muskrat"},
	}}
	module := New(trigger, channels)
	guest := discord.Member{ID: "u2", Username: "guest"}

	module.HandleVoiceStateChange(context.Background(), leave(guest, channels.ByName["Private - muskrat"]))

	if len(channels.Deleted) != 0 {
		t.Fatalf("guest leaving deleted channels: %v", channels.Deleted)
	}
}
