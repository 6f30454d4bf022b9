package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"muskrat/internal/discord"
	"muskrat/internal/storage"
)

const permissionDenied = "You don't have permission to use that command."

// handleCommand parses "<prefix><feature> [subcommand] [args]" and routes it
// over a closed set of features and subcommands; anything unknown is
// silently ignored. All commands run under the guild lock except
// reaction-role creation, which must stay unlocked so its prompt responses
// can flow through onMessageCreate.
func (b *Bot) handleCommand(ctx context.Context, msg discord.Message) {
	rest := strings.TrimPrefix(msg.Content, b.cfg.CommandPrefix)
	feature, rest := splitToken(rest)
	sub, args := splitToken(rest)

	cmd := discord.Command{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Author:    msg.Author,
		Args:      args,
		Prefix:    b.cfg.CommandPrefix,
	}

	switch feature {
	case "counting":
		switch sub {
		case "leaderboard", "lb":
			b.withGuild(cmd.GuildID, func() { b.counting.Leaderboard(ctx, cmd) })
		case "reset":
			b.withGuild(cmd.GuildID, func() { b.counting.Reset(ctx, cmd) })
		case "", "help":
			b.sendCountingHelp(ctx, cmd)
		}
	case "banned_words", "bw":
		switch sub {
		case "add":
			b.withGuild(cmd.GuildID, func() { b.banned.Add(ctx, cmd) })
		case "remove":
			b.withGuild(cmd.GuildID, func() { b.banned.Remove(ctx, cmd) })
		case "list":
			b.withGuild(cmd.GuildID, func() { b.banned.List(ctx, cmd) })
		case "reset":
			b.withGuild(cmd.GuildID, func() { b.banned.Reset(ctx, cmd) })
		case "", "help":
			b.sendBannedWordsHelp(ctx, cmd)
		}
	case "around_the_world", "atw":
		if sub == "" || sub == "help" {
			b.sendPhraseHelp(ctx, cmd)
		}
	case "reaction_role", "rr":
		switch sub {
		case "create":
			b.reactions.Create(ctx, cmd)
		case "", "help":
			b.sendReactionRoleHelp(ctx, cmd)
		}
	case "private_vc", "pvc":
		if sub == "" || sub == "help" {
			b.sendPrivateVCHelp(ctx, cmd)
		}
	case "member_welcome", "welcome":
		switch sub {
		case "channel":
			b.withGuild(cmd.GuildID, func() { b.welcome.SetChannel(ctx, cmd) })
		case "role":
			b.withGuild(cmd.GuildID, func() { b.welcome.SetRole(ctx, cmd) })
		case "message":
			b.withGuild(cmd.GuildID, func() { b.welcome.SetMessage(ctx, cmd) })
		case "", "help":
			b.sendWelcomeHelp(ctx, cmd)
		}
	case "member_leave", "leave":
		switch sub {
		case "channel":
			b.withGuild(cmd.GuildID, func() { b.welcome.SetLeaveChannel(ctx, cmd) })
		case "", "help":
			b.sendLeaveHelp(ctx, cmd)
		}
	case "logs":
		switch sub {
		case "", "show":
			b.withGuild(cmd.GuildID, func() { b.logsShow(ctx, cmd) })
		case "add":
			b.withGuild(cmd.GuildID, func() { b.logsAdd(ctx, cmd) })
		case "reset":
			b.withGuild(cmd.GuildID, func() { b.logsReset(ctx, cmd) })
		case "help":
			b.sendLogsHelp(ctx, cmd)
		}
	case "help":
		b.sendGlobalHelp(ctx, cmd)
	}
}

// splitToken cuts the first whitespace-separated token off input and returns
// it with the trimmed remainder.
func splitToken(input string) (string, string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ""
	}
	if idx := strings.IndexAny(input, " \t"); idx >= 0 {
		return input[:idx], strings.TrimSpace(input[idx:])
	}
	return input, ""
}

func (b *Bot) logsShow(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}

	guild, err := b.store.Guild(ctx, cmd.GuildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.audit.Log(ctx, cmd.GuildID, "Could not find guild data: "+err.Error())
		}
		return
	}

	limit := 0
	if cmd.Args != "" {
		parsed, err := strconv.Atoi(cmd.Args)
		if err != nil {
			b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, fmt.Sprintf("Could not parse limit %q.", cmd.Args))
			return
		}
		limit = parsed
	}

	b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, renderLogs(guild.Logs, limit))
}

// renderLogs shows the last limit entries in chronological order, or the
// full history when limit is not positive.
func renderLogs(logs []string, limit int) string {
	entries := logs
	header := "Server Logs (full history)"
	if limit > 0 {
		header = fmt.Sprintf("Server Logs (last %d)", limit)
		if limit < len(logs) {
			entries = logs[len(logs)-limit:]
		}
	}

	var builder strings.Builder
	builder.WriteString("```")
	builder.WriteString(header)
	builder.WriteString("\n\n")
	for _, entry := range entries {
		builder.WriteString(entry)
		builder.WriteString("\n")
	}
	builder.WriteString("```")
	return builder.String()
}

func (b *Bot) logsAdd(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.CanManageMessages() {
		b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}
	b.audit.Log(ctx, cmd.GuildID, "[User Generated] "+cmd.Args)
}

func (b *Bot) logsReset(ctx context.Context, cmd discord.Command) {
	if !cmd.Author.IsAdministrator() {
		b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, permissionDenied)
		return
	}
	if err := b.store.ResetLogs(ctx, cmd.GuildID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.audit.Log(ctx, cmd.GuildID, "Failed to reset guild logs: "+err.Error())
			b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Something went wrong. See logs for more detail.")
		}
		return
	}
	b.messenger.SendMessage(ctx, cmd.GuildID, cmd.ChannelID, "Server logs have successfully been reset.")
}
