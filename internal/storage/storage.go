package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a guild has no document yet. Handlers treat
// it as "not configured" and stop silently rather than reporting an error.
var ErrNotFound = errors.New("guild not configured")

const guildCollection = "guilds"

type Store struct {
	client *mongo.Client
	guilds *mongo.Collection
}

// GuildConfig is the single mutable document per guild. Every mutation goes
// through one atomic field update ($set/$push/$pull/$inc); application code
// never writes back a whole document it previously read.
type GuildConfig struct {
	GuildID          string         `bson:"guild_id"`
	WelcomeChannelID string         `bson:"welcome_channel_id"`
	WelcomeMessage   string         `bson:"welcome_message"`
	WelcomeRoleID    string         `bson:"welcome_role_id"`
	LeaveChannelID   string         `bson:"leave_channel_id"`
	BannedWords      []string       `bson:"banned_words"`
	ReactionRoles    []ReactionRole `bson:"reaction_roles"`
	MemberData       []MemberCount  `bson:"member_data"`
	Logs             []string       `bson:"logs"`
}

// ReactionRole binds a posted message to its emoji/role pairs. MessageID is
// unique within a guild; within one binding the first emoji match wins.
type ReactionRole struct {
	MessageID string     `bson:"message_id"`
	Pairs     []RolePair `bson:"pairs"`
}

type RolePair struct {
	RoleID string `bson:"role_id"`
	Emoji  string `bson:"emoji"`
}

type MemberCount struct {
	MemberID string `bson:"member_id"`
	Counted  int    `bson:"counted"`
}

// Binding returns the reaction role bound to messageID, or nil.
func (g GuildConfig) Binding(messageID string) *ReactionRole {
	for i := range g.ReactionRoles {
		if g.ReactionRoles[i].MessageID == messageID {
			return &g.ReactionRoles[i]
		}
	}
	return nil
}

// Role returns the role mapped to emoji within the binding, first match wins.
func (r ReactionRole) Role(emoji string) (string, bool) {
	for _, pair := range r.Pairs {
		if pair.Emoji == emoji {
			return pair.RoleID, true
		}
	}
	return "", false
}

// Counter returns the counting score for memberID and whether the member is
// registered.
func (g GuildConfig) Counter(memberID string) (int, bool) {
	for _, member := range g.MemberData {
		if member.MemberID == memberID {
			return member.Counted, true
		}
	}
	return 0, false
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Store{
		client: client,
		guilds: client.Database(database).Collection(guildCollection),
	}, nil
}

func (s *Store) Close(ctx context.Context) {
	if s.client != nil {
		_ = s.client.Disconnect(ctx)
	}
}

// EnsureGuild creates the guild document if it does not exist yet. Existing
// documents are left untouched, so re-joining or restarting is safe.
func (s *Store) EnsureGuild(ctx context.Context, guildID, defaultRoleID string) error {
	_, err := s.guilds.UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$setOnInsert": bson.M{
			"guild_id":           guildID,
			"welcome_channel_id": "",
			"welcome_message":    "",
			"welcome_role_id":    defaultRoleID,
			"leave_channel_id":   "",
			"banned_words":       []string{},
			"reaction_roles":     []ReactionRole{},
			"member_data":        []MemberCount{},
			"logs":               []string{},
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) Guild(ctx context.Context, guildID string) (GuildConfig, error) {
	var guild GuildConfig
	err := s.guilds.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&guild)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, err
	}
	return guild, nil
}

// RegisterMember appends a zeroed counter entry for the member. Callers are
// expected to have checked the member is not registered yet; a duplicate
// entry would shadow the original on lookup.
func (s *Store) RegisterMember(ctx context.Context, guildID, memberID string) error {
	return s.updateExisting(ctx, guildID, bson.M{
		"$push": bson.M{"member_data": MemberCount{MemberID: memberID, Counted: 0}},
	})
}

// IncrementCount atomically bumps the member's counter in place. Returns
// false when the member has no counter entry.
func (s *Store) IncrementCount(ctx context.Context, guildID, memberID string) (bool, error) {
	result, err := s.guilds.UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$inc": bson.M{"member_data.$[m].counted": 1}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"m.member_id": memberID}},
		}),
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (s *Store) ResetCounts(ctx context.Context, guildID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"member_data.$[].counted": 0}})
}

func (s *Store) AddBannedWord(ctx context.Context, guildID, word string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$push": bson.M{"banned_words": word}})
}

func (s *Store) RemoveBannedWord(ctx context.Context, guildID, word string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$pull": bson.M{"banned_words": word}})
}

func (s *Store) ResetBannedWords(ctx context.Context, guildID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"banned_words": []string{}}})
}

func (s *Store) AddReactionRole(ctx context.Context, guildID string, binding ReactionRole) error {
	return s.updateExisting(ctx, guildID, bson.M{"$push": bson.M{"reaction_roles": binding}})
}

func (s *Store) RemoveReactionRole(ctx context.Context, guildID, messageID string) error {
	return s.updateExisting(ctx, guildID, bson.M{
		"$pull": bson.M{"reaction_roles": bson.M{"message_id": messageID}},
	})
}

func (s *Store) SetWelcomeChannel(ctx context.Context, guildID, channelID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"welcome_channel_id": channelID}})
}

func (s *Store) SetWelcomeRole(ctx context.Context, guildID, roleID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"welcome_role_id": roleID}})
}

func (s *Store) SetWelcomeMessage(ctx context.Context, guildID, message string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"welcome_message": message}})
}

func (s *Store) SetLeaveChannel(ctx context.Context, guildID, channelID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"leave_channel_id": channelID}})
}

func (s *Store) AppendLog(ctx context.Context, guildID, line string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$push": bson.M{"logs": line}})
}

func (s *Store) ResetLogs(ctx context.Context, guildID string) error {
	return s.updateExisting(ctx, guildID, bson.M{"$set": bson.M{"logs": []string{}}})
}

func (s *Store) updateExisting(ctx context.Context, guildID string, update bson.M) error {
	result, err := s.guilds.UpdateOne(ctx, bson.M{"guild_id": guildID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
