package bot

import (
	"context"
	"fmt"

	"muskrat/internal/discord"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) helpEmbed(title, description, commands string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: title, Color: b.cfg.EmbedColor}
	if description != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "***Description***", Value: description, Inline: true})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "***Commands***", Value: commands, Inline: false})
	return embed
}

func (b *Bot) sendGlobalHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	commands := fmt.Sprintf(
		"**Around The World**\n`%[1]saround_the_world` `%[1]satw`\n"+
			"**Banned Words**\n`%[1]sbanned_words` `%[1]sbw`\n"+
			"**Counting**\n`%[1]scounting`\n"+
			"**Logs**\n`%[1]slogs`\n"+
			"**Member Leave**\n`%[1]smember_leave` `%[1]sleave`\n"+
			"**Member Welcome**\n`%[1]smember_welcome` `%[1]swelcome`\n"+
			"**Private VC's**\n`%[1]sprivate_vc` `%[1]spvc`\n"+
			"**Reaction Roles**\n`%[1]sreaction_role` `%[1]srr`",
		p)
	embed := &discordgo.MessageEmbed{
		Title: "**Muskrat Bot Commands**",
		Color: b.cfg.EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "***Commands***", Value: commands, Inline: true},
			{Name: "***Additional Information***", Value: fmt.Sprintf("Use `%s[command] help` to get information on how to use specific commands.", p), Inline: false},
		},
	}
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, embed)
}

func (b *Bot) sendCountingHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := fmt.Sprintf("Manages a channel with the name [#%s].\n\nEvery message must be the previous number plus one; anything else is deleted.", b.cfg.Channels.Counting)
	commands := fmt.Sprintf(
		"`%[1]scounting help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]scounting leaderboard`\nShows the top counters of the server.\nRequired Permission: Everyone\n\n"+
			"`%[1]scounting reset`\nResets all counting data for the server.\nRequired Permission: Administrator",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Counting Help", description, commands))
}

func (b *Bot) sendBannedWordsHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := "Manages banned words for the server.\n\nMessages containing a banned word are deleted unless the author can manage messages."
	commands := fmt.Sprintf(
		"`%[1]sbw help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]sbw add [word]`\nAdds [word] to the banned words.\nRequired Permission: Manage Messages\n\n"+
			"`%[1]sbw remove [word]`\nRemoves [word] from the banned words.\nRequired Permission: Manage Messages\n\n"+
			"`%[1]sbw list`\nLists the banned words of the server.\nRequired Permission: Manage Messages\n\n"+
			"`%[1]sbw reset`\nRemoves all banned words.\nRequired Permission: Manage Messages",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Banned Words Help", description, commands))
}

func (b *Bot) sendPhraseHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := fmt.Sprintf("Manages a channel with the name [#%s].\n\nAll messages sent with content other than '%s' are automatically deleted.", b.cfg.Channels.Phrase, b.cfg.Channels.PhraseText)
	commands := fmt.Sprintf("`%satw help`\nShow this message.\nRequired Permission: Everyone", p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Around The World", description, commands))
}

func (b *Bot) sendReactionRoleHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := "Manages Reaction Roles.\n\nWhen a member reacts to a message with a specific emoji, they get the corresponding role set when the Reaction Role is created.\nA Reaction Role can be removed by simply deleting the message."
	commands := fmt.Sprintf(
		"`%[1]srr help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]srr create [text channel]`\nCreates a new reaction role for [text channel].\nYou will then be prompted to enter pairs of roles and the reaction emoji that will give them.\nRequired Permission: Manage Messages",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Reaction Roles Help", description, commands))
}

func (b *Bot) sendPrivateVCHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := fmt.Sprintf(
		"Manages private voice chat channels.\n\nWhen a member joins a voice channel with the name '%s', two new voice channels are created.\nThe first is titled 'Private - [creator name]' and can only be seen by those in it.\nThe second is titled 'Waiting - [creator name]' and can be seen by any member.\n\nThe creator can drag anyone from the 'Waiting' channel into the 'Private' channel.\nWhen the creator leaves the 'Private' channel, both are automatically deleted.",
		b.cfg.Channels.PrivateVCTrigger)
	commands := fmt.Sprintf("`%spvc help`\nShow this message.\nRequired Permission: Everyone", p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Private VC Help", description, commands))
}

func (b *Bot) sendWelcomeHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := "Manages members joining the server."
	commands := fmt.Sprintf(
		"`%[1]swelcome help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]swelcome message [text]`\nSets [text] as the custom welcome message for members joining the server.\nRequired Permission: Administrator\n\n"+
			"`%[1]swelcome role [role]`\nSets [role] as the role to be given automatically to new members.\nRequired Permission: Administrator\n\n"+
			"`%[1]swelcome channel [text channel]`\nSets [text channel] for welcome messages to be sent.\nRequired Permission: Administrator",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Member Join Help", description, commands))
}

func (b *Bot) sendLeaveHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := "Manages members leaving the server."
	commands := fmt.Sprintf(
		"`%[1]sleave help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]sleave channel [text channel]`\nSets [text channel] for leave messages to be sent.\nRequired Permission: Administrator",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Member Leave Help", description, commands))
}

func (b *Bot) sendLogsHelp(ctx context.Context, cmd discord.Command) {
	p := cmd.Prefix
	description := "Manages logs for the server.\n\nLogs are primarily used for the bot to record potential errors for troubleshooting issues, but they can also be used to store your own data."
	commands := fmt.Sprintf(
		"`%[1]slogs help`\nShow this message.\nRequired Permission: Everyone\n\n"+
			"`%[1]slogs add [text]`\nLogs [text].\nRequired Permission: Manage Messages\n\n"+
			"`%[1]slogs show [limit]`\nShows the past [limit] logs. Omit [limit] to show all logs.\nRequired Permission: Manage Messages\n\n"+
			"`%[1]slogs reset`\nDeletes all logs for this server. There is no way to recover them.\nRequired Permission: Administrator",
		p)
	b.messenger.SendEmbed(ctx, cmd.GuildID, cmd.ChannelID, b.helpEmbed("Logs Help", description, commands))
}
