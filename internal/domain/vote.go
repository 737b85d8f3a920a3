package domain

// VoteOperator is the normalized direction of a karma vote.
type VoteOperator string

const (
	OperatorUpvote   VoteOperator = "++"
	OperatorDownvote VoteOperator = "--"
)

// NormalizeOperator maps the symbolic and reaction-emoji vote forms onto the
// two canonical operators. The second return value is false for anything
// unrecognized; callers must treat that as a validation error rather than a
// zero-point vote.
func NormalizeOperator(raw string) (VoteOperator, bool) {
	switch raw {
	case "++", "+1", "thumbsup":
		return OperatorUpvote, true
	case "--", "-1", "thumbsdown":
		return OperatorDownvote, true
	}
	return "", false
}

// Vote is the ephemeral outcome of a single vote evaluation. Points is one of
// -1, 0, +1; zero-point votes carry an explanatory message and cause no
// persistence.
type Vote struct {
	Message string
	Points  int
}

// ScoreEntry is one leaderboard row before grouping.
type ScoreEntry struct {
	Username string
	Points   int
}
