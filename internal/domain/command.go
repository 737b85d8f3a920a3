package domain

import "context"

// Command names registered with the dispatcher.
const (
	CommandGreet                = "greet"
	CommandAdventureTime        = "adventureTime"
	CommandWelcomeUser          = "welcomeUser"
	CommandGetLibraryCategories = "getLibraryCategories"
	CommandGetLibraries         = "getLibraries"
	CommandGetTrendingRepos     = "getTrendingRepos"
	CommandVote                 = "vote"
	CommandUserScore            = "userScore"
	CommandLeaderboard          = "leaderboard"
)

// CommandOptions is the options bag handed to RunCommand. UserID and
// ChannelID come from the raw platform event; the dispatcher resolves them
// into User and Channel before validation and action execution. The remaining
// fields are command-specific and may be empty.
type CommandOptions struct {
	UserID    string
	ChannelID string

	User    *User
	Channel *Channel

	Platform      string   // getLibraryCategories, getLibraries
	Query         string   // getLibraries
	Language      string   // getTrendingRepos
	Operator      string   // vote, raw form ("++", "--", "+1", "-1", ...)
	VotedUser     *UserRef // vote
	RequestedUser *UserRef // userScore
}

// Command is a statically registered dispatcher entry. Validate is optional
// (nil means always applicable); a false result aborts the run silently.
// Action produces and sends the reply itself.
type Command struct {
	Description string
	Validate    func(opts *CommandOptions) bool
	Action      func(ctx context.Context, opts *CommandOptions) error
}
