package brain

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/store"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// Key scheme. Directory entries live under "<kind>_<id>" string keys holding
// JSON; scores and last-voted pointers live in two fixed hashes.
const (
	kindUser    = "user"
	kindChannel = "channel"

	userScoresHash     = "user_scores"
	lastVotedUsersHash = "last_voted_users"
)

// Brain is the typed, logged façade over the store client. It owns the
// mapping between store keys and domain records; nothing else talks to the
// store directly.
type Brain struct {
	store  *store.Client
	logger *zap.Logger
}

func New(store *store.Client, logger *zap.Logger) *Brain {
	return &Brain{store: store, logger: logger}
}

func (b *Brain) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	found, err := b.getObject(ctx, kindUser, id, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (b *Brain) GetUsers(ctx context.Context) ([]*domain.User, error) {
	raw, err := b.listObjects(ctx, kindUser)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(raw))
	for _, data := range raw {
		var user domain.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			b.logger.Warn("Skipping unparseable user record", zap.Error(err))
			continue
		}
		users = append(users, &user)
	}

	b.logger.Debug("Fetched users from brain", zap.Int("count", len(users)))
	return users, nil
}

func (b *Brain) SaveUsers(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return errors.NewValidationError("cannot save an empty user list", "users", users)
	}

	entries := make(map[string]string, len(users))
	for _, user := range users {
		data, err := json.Marshal(user)
		if err != nil {
			return errors.NewCacheError("failed to marshal user", "save", objectKey(kindUser, user.ID), err)
		}
		entries[objectKey(kindUser, user.ID)] = string(data)
	}

	if err := b.store.BatchSet(ctx, entries); err != nil {
		b.logger.Error("Failed to save users", zap.Int("count", len(users)), zap.Error(err))
		return err
	}

	b.logger.Debug("Saved users to brain", zap.Int("count", len(users)))
	return nil
}

func (b *Brain) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	var channel domain.Channel
	found, err := b.getObject(ctx, kindChannel, id, &channel)
	if err != nil || !found {
		return nil, err
	}
	return &channel, nil
}

func (b *Brain) GetChannels(ctx context.Context) ([]*domain.Channel, error) {
	raw, err := b.listObjects(ctx, kindChannel)
	if err != nil {
		return nil, err
	}

	channels := make([]*domain.Channel, 0, len(raw))
	for _, data := range raw {
		var channel domain.Channel
		if err := json.Unmarshal([]byte(data), &channel); err != nil {
			b.logger.Warn("Skipping unparseable channel record", zap.Error(err))
			continue
		}
		channels = append(channels, &channel)
	}

	b.logger.Debug("Fetched channels from brain", zap.Int("count", len(channels)))
	return channels, nil
}

func (b *Brain) SaveChannels(ctx context.Context, channels []*domain.Channel) error {
	if len(channels) == 0 {
		return errors.NewValidationError("cannot save an empty channel list", "channels", channels)
	}

	entries := make(map[string]string, len(channels))
	for _, channel := range channels {
		data, err := json.Marshal(channel)
		if err != nil {
			return errors.NewCacheError("failed to marshal channel", "save", objectKey(kindChannel, channel.ID), err)
		}
		entries[objectKey(kindChannel, channel.ID)] = string(data)
	}

	if err := b.store.BatchSet(ctx, entries); err != nil {
		b.logger.Error("Failed to save channels", zap.Int("count", len(channels)), zap.Error(err))
		return err
	}

	b.logger.Debug("Saved channels to brain", zap.Int("count", len(channels)))
	return nil
}

// GetUserScore returns the user's point total; a missing entry reads as 0.
func (b *Brain) GetUserScore(ctx context.Context, userID string) (int, error) {
	value, err := b.store.HashGet(ctx, userScoresHash, userID)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}

	score, err := strconv.Atoi(value)
	if err != nil {
		b.logger.Error("Corrupt score value",
			zap.String("user", userID),
			zap.String("value", value),
			zap.Error(err),
		)
		return 0, errors.NewCacheError("corrupt score value", "get score", userID, err)
	}

	b.logger.Debug("Fetched user score", zap.String("user", userID), zap.Int("score", score))
	return score, nil
}

func (b *Brain) GetUserScores(ctx context.Context) (map[string]int, error) {
	raw, err := b.store.HashGetAll(ctx, userScoresHash)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(raw))
	for userID, value := range raw {
		score, err := strconv.Atoi(value)
		if err != nil {
			b.logger.Warn("Skipping corrupt score entry",
				zap.String("user", userID),
				zap.String("value", value),
			)
			continue
		}
		scores[userID] = score
	}

	b.logger.Debug("Fetched user scores", zap.Int("count", len(scores)))
	return scores, nil
}

// IncrementUserScore atomically adjusts the user's total and returns the new
// value. Atomicity comes from the store's server-side increment primitive.
func (b *Brain) IncrementUserScore(ctx context.Context, userID string, delta int) (int, error) {
	total, err := b.store.HashIncrBy(ctx, userScoresHash, userID, int64(delta))
	if err != nil {
		b.logger.Error("Failed to increment user score",
			zap.String("user", userID),
			zap.Int("delta", delta),
			zap.Error(err),
		)
		return 0, err
	}

	b.logger.Debug("Incremented user score",
		zap.String("user", userID),
		zap.Int("delta", delta),
		zap.Int64("total", total),
	)
	return int(total), nil
}

func (b *Brain) GetLastVotedUser(ctx context.Context, channelID string) (string, error) {
	userID, err := b.store.HashGet(ctx, lastVotedUsersHash, channelID)
	if err != nil {
		return "", err
	}

	b.logger.Debug("Fetched last voted user",
		zap.String("channel", channelID),
		zap.String("user", userID),
	)
	return userID, nil
}

func (b *Brain) SetLastVotedUser(ctx context.Context, channelID, userID string) error {
	if err := b.store.HashSet(ctx, lastVotedUsersHash, channelID, userID); err != nil {
		b.logger.Error("Failed to set last voted user",
			zap.String("channel", channelID),
			zap.String("user", userID),
			zap.Error(err),
		)
		return err
	}

	b.logger.Debug("Set last voted user",
		zap.String("channel", channelID),
		zap.String("user", userID),
	)
	return nil
}

func (b *Brain) getObject(ctx context.Context, kind, id string, dest any) (bool, error) {
	key := objectKey(kind, id)
	data, err := b.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		b.logger.Error("Failed to unmarshal stored object", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("unmarshal failed", "get", key, err)
	}
	return true, nil
}

// listObjects enumerates every "<kind>_*" key and batch-fetches the values.
// The scores hash also matches the "user_*" pattern; it holds a non-string
// value so the batch get returns it as empty and it is filtered out here.
func (b *Brain) listObjects(ctx context.Context, kind string) ([]string, error) {
	keys, err := b.store.Keys(ctx, kind+"_*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := b.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	objects := make([]string, 0, len(values))
	for _, value := range values {
		if value != "" {
			objects = append(objects, value)
		}
	}
	return objects, nil
}

func objectKey(kind, id string) string {
	return kind + "_" + id
}
