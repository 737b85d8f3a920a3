package score

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kapu/bmo-slack-bot-go/internal/brain"
	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestKeeper(t *testing.T) (*Keeper, *brain.Brain, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := store.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	b := brain.New(client, zap.NewNop())
	return NewKeeper(b, zap.NewNop()), b, mr
}

func TestParseVoteRequiresVotingUser(t *testing.T) {
	if _, err := ParseVote(nil, &domain.User{ID: "U2"}, "++"); err == nil {
		t.Fatal("expected an error for a missing voting user")
	}
}

func TestParseVoteMissingTarget(t *testing.T) {
	vote, err := ParseVote(&domain.User{ID: "U1", Name: "alice"}, nil, "++")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vote.Message != "Please specify the username" {
		t.Fatalf("unexpected message: %q", vote.Message)
	}
	if vote.Points != 0 {
		t.Fatalf("expected zero points, got %d", vote.Points)
	}
}

func TestParseVoteSelfVote(t *testing.T) {
	user := &domain.User{ID: "U1", Name: "alice"}
	vote, err := ParseVote(user, &domain.User{ID: "U1", Name: "alice"}, "++")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vote.Message != "@alice: No cheating 😏" {
		t.Fatalf("unexpected message: %q", vote.Message)
	}
	if vote.Points != 0 {
		t.Fatalf("expected zero points, got %d", vote.Points)
	}
}

func TestParseVoteOperators(t *testing.T) {
	voting := &domain.User{ID: "U1", Name: "alice"}
	voted := &domain.User{ID: "U2", Name: "bob"}

	cases := []struct {
		operator string
		message  string
		points   int
	}{
		{"++", "Upvoted @bob 😃", 1},
		{"+1", "Upvoted @bob 😃", 1},
		{"thumbsup", "Upvoted @bob 😃", 1},
		{"--", "Downvoted @bob 😔", -1},
		{"-1", "Downvoted @bob 😔", -1},
		{"thumbsdown", "Downvoted @bob 😔", -1},
	}
	for _, tc := range cases {
		vote, err := ParseVote(voting, voted, tc.operator)
		if err != nil {
			t.Fatalf("operator %q: expected no error, got %v", tc.operator, err)
		}
		if vote.Message != tc.message {
			t.Fatalf("operator %q: unexpected message %q", tc.operator, vote.Message)
		}
		if vote.Points != tc.points {
			t.Fatalf("operator %q: expected %d points, got %d", tc.operator, tc.points, vote.Points)
		}
	}
}

func TestParseVoteRejectsUnknownOperator(t *testing.T) {
	voting := &domain.User{ID: "U1", Name: "alice"}
	voted := &domain.User{ID: "U2", Name: "bob"}

	if _, err := ParseVote(voting, voted, "+++"); err == nil {
		t.Fatal("expected an error for an unrecognized operator")
	}
}

func TestParseVoteUnknownOperatorWinsOverMissingTarget(t *testing.T) {
	voting := &domain.User{ID: "U1", Name: "alice"}

	if _, err := ParseVote(voting, nil, "~~"); err == nil {
		t.Fatal("expected an error, not a missing-target message")
	}
}

func TestParseVoteUnknownOperatorWinsOverSelfVote(t *testing.T) {
	voting := &domain.User{ID: "U1", Name: "alice"}

	if _, err := ParseVote(voting, &domain.User{ID: "U1", Name: "alice"}, "~~"); err == nil {
		t.Fatal("expected an error, not a self-vote message")
	}
}

func TestApplyVoteUpdatesScoreAndPointer(t *testing.T) {
	keeper, b, _ := newTestKeeper(t)
	ctx := context.Background()

	if err := keeper.ApplyVote(ctx, "C1", "U2", 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := keeper.ApplyVote(ctx, "C1", "U2", 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	score, err := b.GetUserScore(ctx, "U2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if score != 2 {
		t.Fatalf("expected score 2, got %d", score)
	}

	lastVoted, err := b.GetLastVotedUser(ctx, "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastVoted != "U2" {
		t.Fatalf("expected last voted user U2, got %q", lastVoted)
	}
}

func TestApplyVoteIncrementFailureSurfaces(t *testing.T) {
	keeper, b, mr := newTestKeeper(t)
	ctx := context.Background()

	// A plain string under the score key makes HINCRBY fail after the
	// pointer hash write already succeeded.
	if err := mr.Set("user_scores", "oops"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := keeper.ApplyVote(ctx, "C1", "U2", 1); err == nil {
		t.Fatal("expected the increment failure to surface")
	}

	lastVoted, err := b.GetLastVotedUser(ctx, "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastVoted != "U2" {
		t.Fatalf("expected the pointer write to stand, got %q", lastVoted)
	}
}

func TestApplyVoteZeroPointsIsNoop(t *testing.T) {
	keeper, b, _ := newTestKeeper(t)
	ctx := context.Background()

	if err := keeper.ApplyVote(ctx, "C1", "U2", 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	score, err := b.GetUserScore(ctx, "U2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if score != 0 {
		t.Fatalf("expected untouched score, got %d", score)
	}

	lastVoted, err := b.GetLastVotedUser(ctx, "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lastVoted != "" {
		t.Fatalf("expected no last voted user, got %q", lastVoted)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	keeper, _, _ := newTestKeeper(t)

	board, err := keeper.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if board != "No scores yet" {
		t.Fatalf("unexpected leaderboard: %q", board)
	}
}

func TestLeaderboardGroupsAndCrown(t *testing.T) {
	keeper, b, _ := newTestKeeper(t)
	ctx := context.Background()

	users := []*domain.User{
		{ID: "U1", Name: "alice"},
		{ID: "U2", Name: "bob"},
		{ID: "U3", Name: "carol"},
	}
	if err := b.SaveUsers(ctx, users); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	seed := map[string]int{"U1": 5, "U2": 5, "U3": 2, "U4": 1, "U5": -3}
	for userID, points := range seed {
		if _, err := b.IncrementUserScore(ctx, userID, points); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	board, err := keeper.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines := strings.Split(board, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), board)
	}
	if lines[1] != "```1. @alice: 5 points 👑" {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if lines[2] != "   @bob: 5 points 👑" {
		t.Fatalf("unexpected tied row: %q", lines[2])
	}
	if lines[3] != "2. @carol: 2 points" {
		t.Fatalf("unexpected second group: %q", lines[3])
	}
	if lines[4] != "3. mystery: 1 point```" {
		t.Fatalf("unexpected mystery row: %q", lines[4])
	}
	if strings.Contains(board, "-3") {
		t.Fatalf("negative scores must be excluded: %q", board)
	}
}

func TestRenderLeaderboardCapsGroups(t *testing.T) {
	entries := make([]domain.ScoreEntry, 0, 12)
	for i := 1; i <= 12; i++ {
		entries = append(entries, domain.ScoreEntry{Username: "@user", Points: i})
	}

	board := renderLeaderboard(entries)
	if strings.Count(board, "\n") != 10 {
		t.Fatalf("expected 10 rows after the sparkline, got %q", board)
	}
	if !strings.Contains(board, "10.") {
		t.Fatalf("expected a tenth rank, got %q", board)
	}
	if strings.Contains(board, "11.") {
		t.Fatalf("expected at most ten groups, got %q", board)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]int{3, 3, 3}); got != "███" {
		t.Fatalf("expected full bars for uniform values, got %q", got)
	}

	got := Sparkline([]int{8, 1})
	if []rune(got)[0] != '█' || []rune(got)[1] != '▁' {
		t.Fatalf("expected max then min bar, got %q", got)
	}
}
