package score

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kapu/bmo-slack-bot-go/internal/brain"
	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"go.uber.org/zap"
)

const noScoresMessage = "No scores yet"

// leaderboardGroups caps the leaderboard at the top distinct point values.
const leaderboardGroups = 10

// Keeper owns the karma scoring rules: vote evaluation, score persistence and
// leaderboard rendering. Persistence mechanics stay in the brain.
type Keeper struct {
	brain  *brain.Brain
	logger *zap.Logger
}

func NewKeeper(brain *brain.Brain, logger *zap.Logger) *Keeper {
	return &Keeper{brain: brain, logger: logger}
}

// ParseVote evaluates a single vote. Missing targets and self-votes yield
// zero points with an explanatory message; an absent voting user or an
// unrecognized operator is an error, never a silent zero-point vote.
func ParseVote(votingUser, votedUser *domain.User, operator string) (*domain.Vote, error) {
	if votingUser == nil {
		return nil, errors.NewValidationError("vote requires a voting user", "votingUser", nil)
	}
	op, ok := domain.NormalizeOperator(operator)
	if !ok {
		return nil, errors.NewValidationError("unrecognized vote operator", "operator", operator)
	}

	if votedUser == nil {
		return &domain.Vote{Message: "Please specify the username", Points: 0}, nil
	}
	if votingUser.ID == votedUser.ID {
		return &domain.Vote{
			Message: fmt.Sprintf("@%s: No cheating 😏", votingUser.Name),
			Points:  0,
		}, nil
	}

	switch op {
	case domain.OperatorUpvote:
		return &domain.Vote{
			Message: fmt.Sprintf("Upvoted @%s 😃", votedUser.Name),
			Points:  1,
		}, nil
	default:
		return &domain.Vote{
			Message: fmt.Sprintf("Downvoted @%s 😔", votedUser.Name),
			Points:  -1,
		}, nil
	}
}

// ApplyVote persists an accepted vote: the channel's last-voted pointer, then
// the score increment. The two writes are independent; a failed increment
// surfaces even though the pointer may already be updated.
func (k *Keeper) ApplyVote(ctx context.Context, channelID, userID string, points int) error {
	if points == 0 {
		return nil
	}

	if err := k.brain.SetLastVotedUser(ctx, channelID, userID); err != nil {
		return err
	}

	total, err := k.brain.IncrementUserScore(ctx, userID, points)
	if err != nil {
		return err
	}

	k.logger.Debug("Vote applied",
		zap.String("channel", channelID),
		zap.String("user", userID),
		zap.Int("points", points),
		zap.Int("total", total),
	)
	return nil
}

// Leaderboard renders the ranked list of all positive scores, grouped by
// point value, with a crown on the top group and a sparkline header.
func (k *Keeper) Leaderboard(ctx context.Context) (string, error) {
	scores, err := k.brain.GetUserScores(ctx)
	if err != nil {
		return "", err
	}
	users, err := k.brain.GetUsers(ctx)
	if err != nil {
		return "", err
	}

	usersByID := make(map[string]*domain.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}

	entries := make([]domain.ScoreEntry, 0, len(scores))
	for userID, points := range scores {
		if points <= 0 {
			continue
		}

		// Score entries can outlive their directory records.
		username := "mystery"
		if user, ok := usersByID[userID]; ok && user.Name != "" {
			username = "@" + user.Name
		}
		entries = append(entries, domain.ScoreEntry{Username: username, Points: points})
	}

	if len(entries) == 0 {
		return noScoresMessage, nil
	}

	return renderLeaderboard(entries), nil
}

func renderLeaderboard(entries []domain.ScoreEntry) string {
	groups := make(map[int][]string)
	for _, entry := range entries {
		groups[entry.Points] = append(groups[entry.Points], entry.Username)
	}

	pointValues := make([]int, 0, len(groups))
	for points := range groups {
		pointValues = append(pointValues, points)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(pointValues)))
	if len(pointValues) > leaderboardGroups {
		pointValues = pointValues[:leaderboardGroups]
	}

	var rows []string
	for i, points := range pointValues {
		unit := "point"
		if points > 1 {
			unit = "points"
		}
		crown := ""
		if i == 0 {
			crown = " 👑"
		}

		usernames := groups[points]
		sort.Strings(usernames)

		num := fmt.Sprintf("%d.", i+1)
		for j, username := range usernames {
			prefix := num
			if j > 0 {
				prefix = strings.Repeat(" ", len(num))
			}
			rows = append(rows, fmt.Sprintf("%s %s: %d %s%s", prefix, username, points, unit, crown))
		}
	}

	return fmt.Sprintf("%s\n```%s```", Sparkline(pointValues), strings.Join(rows, "\n"))
}
