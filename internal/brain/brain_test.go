package brain

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestBrain(t *testing.T) (*Brain, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := store.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	return New(client, zap.NewNop()), mr
}

func TestSaveAndGetUsers(t *testing.T) {
	b, _ := newTestBrain(t)
	ctx := context.Background()

	users := []*domain.User{
		{ID: "U1", Name: "alice", Email: "alice@example.com"},
		{ID: "U2", Name: "bob", IsAdmin: true},
	}
	if err := b.SaveUsers(ctx, users); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	user, err := b.GetUser(ctx, "U1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user == nil || user.Name != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	all, err := b.GetUsers(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}
}

func TestGetUserMissing(t *testing.T) {
	b, _ := newTestBrain(t)

	user, err := b.GetUser(context.Background(), "U404")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil for a missing user, got %+v", user)
	}
}

func TestSaveUsersRejectsEmptyList(t *testing.T) {
	b, _ := newTestBrain(t)

	if err := b.SaveUsers(context.Background(), nil); err == nil {
		t.Fatal("expected an error for an empty user list")
	}
}

// The score hash lives under a key that matches the user record pattern;
// listing users must skip it rather than choke on the wrong type.
func TestGetUsersSkipsScoresHash(t *testing.T) {
	b, _ := newTestBrain(t)
	ctx := context.Background()

	if err := b.SaveUsers(ctx, []*domain.User{{ID: "U1", Name: "alice"}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := b.IncrementUserScore(ctx, "U1", 3); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	users, err := b.GetUsers(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(users) != 1 || users[0].ID != "U1" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestSaveAndGetChannels(t *testing.T) {
	b, _ := newTestBrain(t)
	ctx := context.Background()

	channels := []*domain.Channel{
		{ID: "C1", Name: "general"},
		{ID: "C2", Name: "intro"},
	}
	if err := b.SaveChannels(ctx, channels); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	channel, err := b.GetChannel(ctx, "C2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if channel == nil || channel.Name != "intro" {
		t.Fatalf("unexpected channel: %+v", channel)
	}
}

func TestUserScoreDefaultsToZero(t *testing.T) {
	b, _ := newTestBrain(t)

	score, err := b.GetUserScore(context.Background(), "U404")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if score != 0 {
		t.Fatalf("expected zero score, got %d", score)
	}
}

func TestIncrementUserScore(t *testing.T) {
	b, _ := newTestBrain(t)
	ctx := context.Background()

	total, err := b.IncrementUserScore(ctx, "U1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}

	total, err = b.IncrementUserScore(ctx, "U1", -3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != -2 {
		t.Fatalf("expected total -2, got %d", total)
	}

	score, err := b.GetUserScore(ctx, "U1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if score != -2 {
		t.Fatalf("expected score -2, got %d", score)
	}
}

func TestGetUserScoresSkipsCorruptEntries(t *testing.T) {
	b, mr := newTestBrain(t)
	ctx := context.Background()

	if _, err := b.IncrementUserScore(ctx, "U1", 4); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	mr.HSet("user_scores", "U2", "not-a-number")

	scores, err := b.GetUserScores(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scores) != 1 || scores["U1"] != 4 {
		t.Fatalf("unexpected scores: %+v", scores)
	}
}

func TestLastVotedUser(t *testing.T) {
	b, _ := newTestBrain(t)
	ctx := context.Background()

	lastVoted, err := b.GetLastVotedUser(ctx, "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastVoted != "" {
		t.Fatalf("expected empty pointer, got %q", lastVoted)
	}

	if err := b.SetLastVotedUser(ctx, "C1", "U7"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lastVoted, err = b.GetLastVotedUser(ctx, "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastVoted != "U7" {
		t.Fatalf("expected U7, got %q", lastVoted)
	}
}
