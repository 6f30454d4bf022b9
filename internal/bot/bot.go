// Package bot wires the discordgo session to the feature modules. It
// normalizes raw gateway events, serializes them per guild and routes each
// one to the module that owns it.
package bot

import (
	"context"
	"time"

	"muskrat/internal/config"
	"muskrat/internal/discord"
	"muskrat/internal/modules/audit"
	"muskrat/internal/modules/bannedwords"
	"muskrat/internal/modules/counting"
	"muskrat/internal/modules/phrase"
	"muskrat/internal/modules/privatevc"
	"muskrat/internal/modules/reactionroles"
	"muskrat/internal/modules/welcome"
	"muskrat/internal/storage"
	"muskrat/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const presenceText = "Watching over my territory."

// Store covers the guild document operations the router itself performs;
// the feature modules declare their own narrower interfaces.
type Store interface {
	EnsureGuild(ctx context.Context, guildID, defaultRoleID string) error
	Guild(ctx context.Context, guildID string) (storage.GuildConfig, error)
	ResetLogs(ctx context.Context, guildID string) error
}

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     Store
	session   *discordgo.Session
	adapter   *discord.Session
	messenger discord.Messenger
	audit     *audit.Logger
	guildMu   *utils.KeyedMutex

	counting  *counting.Module
	banned    *bannedwords.Module
	phrase    *phrase.Module
	reactions *reactionroles.Module
	privatevc *privatevc.Module
	welcome   *welcome.Module
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	adapter := discord.NewSession(session, auditLogger)
	promptTimeout := time.Duration(cfg.PromptTimeoutSeconds) * time.Second

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		session:   session,
		adapter:   adapter,
		messenger: adapter,
		audit:     auditLogger,
		guildMu:   utils.NewKeyedMutex(),
	}

	b.counting = counting.New(cfg.Channels.Counting, cfg.EmbedColor, store, adapter, adapter, adapter, auditLogger)
	b.banned = bannedwords.New(cfg.EmbedColor, store, adapter, auditLogger)
	b.phrase = phrase.New(cfg.Channels.PhraseText, adapter)
	b.reactions = reactionroles.New(promptTimeout, store, adapter, adapter, adapter, adapter, adapter, auditLogger)
	b.privatevc = privatevc.New(cfg.Channels.PrivateVCTrigger, adapter)
	b.welcome = welcome.New(store, adapter, adapter, adapter, adapter, auditLogger)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onMessageReactionRemove)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)

	return b.session.Open()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

// withGuild serializes the callback against every other handler working on
// the same guild. Different guilds run in parallel.
func (b *Bot) withGuild(guildID string, fn func()) {
	b.guildMu.Lock(guildID)
	defer b.guildMu.Unlock(guildID)
	fn()
}
