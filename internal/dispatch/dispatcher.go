package dispatch

import (
	"context"
	"fmt"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	slackapi "github.com/slack-go/slack"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Messenger is the outbound surface of the chat platform.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, msg *domain.Message) error
	SendError(ctx context.Context, channelID string)
	ListUsers(ctx context.Context) ([]slackapi.User, error)
	ListChannels(ctx context.Context) ([]slackapi.Channel, error)
}

// Brain is the directory and vote-state cache the dispatcher resolves
// identities against.
type Brain interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUsers(ctx context.Context) ([]*domain.User, error)
	SaveUsers(ctx context.Context, users []*domain.User) error
	GetChannel(ctx context.Context, id string) (*domain.Channel, error)
	SaveChannels(ctx context.Context, channels []*domain.Channel) error
	GetUserScore(ctx context.Context, userID string) (int, error)
	GetLastVotedUser(ctx context.Context, channelID string) (string, error)
}

// ScoreKeeper applies accepted votes and renders the leaderboard.
type ScoreKeeper interface {
	ApplyVote(ctx context.Context, channelID, userID string, points int) error
	Leaderboard(ctx context.Context) (string, error)
}

// LibraryProvider serves awesome-list lookups.
type LibraryProvider interface {
	CategoriesTree(ctx context.Context, platform string) (string, error)
	LibrariesForQuery(ctx context.Context, platform, query string) ([]*domain.Library, error)
}

// TrendingProvider serves trending-repo lookups.
type TrendingProvider interface {
	TrendingRepos(ctx context.Context, language string) ([]*domain.Repo, error)
}

// Dependencies carries everything the command table closes over.
type Dependencies struct {
	Messenger    Messenger
	Brain        Brain
	Keeper       ScoreKeeper
	Libraries    LibraryProvider
	Trending     TrendingProvider
	IntroChannel string
	Logger       *zap.Logger
}

// Dispatcher resolves identities, validates and runs registered commands.
// The registry is built once at construction and immutable afterwards.
type Dispatcher struct {
	deps     *Dependencies
	commands map[string]*domain.Command
}

func NewDispatcher(deps *Dependencies) *Dispatcher {
	d := &Dispatcher{deps: deps}
	d.commands = d.buildCommands()
	return d
}

// Commands returns the registered command names mapped to descriptions, for
// help surfaces.
func (d *Dispatcher) Commands() map[string]string {
	described := make(map[string]string, len(d.commands))
	for name, cmd := range d.commands {
		described[name] = cmd.Description
	}
	return described
}

// RunCommand turns a (commandName, options) pair into at most one reply.
// Missing channel or user ids make the call a silent no-op; this guards
// against malformed upstream events without log noise. Resolution misses and
// failed validation also abort silently. Only action and collaborator
// failures are surfaced, as an error log plus the fixed apology reply.
func (d *Dispatcher) RunCommand(ctx context.Context, commandName string, opts *domain.CommandOptions) {
	if commandName == "" || opts == nil || opts.ChannelID == "" || opts.UserID == "" {
		return
	}

	command, ok := d.commands[commandName]
	if !ok {
		d.deps.Logger.Error("Failed to process command",
			zap.String("command", commandName),
			zap.Error(fmt.Errorf("unknown command")),
		)
		d.deps.Messenger.SendError(ctx, opts.ChannelID)
		return
	}

	var (
		user    *domain.User
		channel *domain.Channel
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		resolved, err := d.resolveUser(ctx, opts.UserID)
		user = resolved
		return err
	})
	p.Go(func(ctx context.Context) error {
		resolved, err := d.resolveChannel(ctx, opts.ChannelID)
		channel = resolved
		return err
	})
	if err := p.Wait(); err != nil {
		d.fail(ctx, commandName, opts.ChannelID, err)
		return
	}

	// An unresolvable actor is most commonly a bot or deleted identity;
	// not worth erroring loudly about.
	if user == nil || channel == nil {
		d.deps.Logger.Debug("Dropping command for unresolvable actor",
			zap.String("command", commandName),
			zap.String("user_id", opts.UserID),
			zap.String("channel_id", opts.ChannelID),
		)
		return
	}

	opts.User = user
	opts.Channel = channel

	if command.Validate != nil && !command.Validate(opts) {
		return
	}

	location := fmt.Sprintf("in channel %s", channel.Name)
	if channel.IsVirtual() {
		location = fmt.Sprintf("in %s", channel.Name)
	}
	d.deps.Logger.Info(fmt.Sprintf("%s for user %s %s", command.Description, user.Name, location))

	if err := command.Action(ctx, opts); err != nil {
		d.fail(ctx, commandName, channel.ID, err)
	}
}

func (d *Dispatcher) fail(ctx context.Context, commandName, channelID string, err error) {
	d.deps.Logger.Error("Failed to process command",
		zap.String("command", commandName),
		zap.Error(err),
	)
	d.deps.Messenger.SendError(ctx, channelID)
}

// resolveUser looks the id up in the brain and repairs a miss with a full
// directory refresh. Concurrent misses may refresh concurrently; the refresh
// is idempotent so the duplication is tolerated rather than hidden.
func (d *Dispatcher) resolveUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, nil
	}

	user, err := d.deps.Brain.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	users, err := d.refreshUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, nil
}

// FindUserByName searches the cached directory by display name, falling back
// to one refresh on a miss.
func (d *Dispatcher) FindUserByName(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, nil
	}

	users, err := d.deps.Brain.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	if user := findByName(users, username); user != nil {
		return user, nil
	}

	users, err = d.refreshUsers(ctx)
	if err != nil {
		return nil, err
	}
	return findByName(users, username), nil
}

func findByName(users []*domain.User, username string) *domain.User {
	for _, u := range users {
		if u.Name == username {
			return u
		}
	}
	return nil
}

func (d *Dispatcher) resolveChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	if channelID == "" {
		return nil, nil
	}

	// DM and private-group ids map to synthetic channels and never touch
	// the brain.
	if virtual := domain.VirtualChannel(channelID); virtual != nil {
		return virtual, nil
	}

	channel, err := d.deps.Brain.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel != nil {
		return channel, nil
	}

	channels, err := d.refreshChannels(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range channels {
		if c.ID == channelID {
			return c, nil
		}
	}
	return nil, nil
}

// refreshUsers re-fetches the whole roster, normalizes it and overwrites the
// cached directory. Absent upstream profile fields stay absent in the stored
// record instead of becoming empty placeholders.
func (d *Dispatcher) refreshUsers(ctx context.Context) ([]*domain.User, error) {
	raw, err := d.deps.Messenger.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	users := make([]*domain.User, 0, len(raw))
	for _, r := range raw {
		users = append(users, &domain.User{
			ID:        r.ID,
			Name:      r.Name,
			IsAdmin:   r.IsAdmin,
			FirstName: r.Profile.FirstName,
			LastName:  r.Profile.LastName,
			RealName:  r.Profile.RealName,
			Email:     r.Profile.Email,
		})
	}

	if err := d.deps.Brain.SaveUsers(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (d *Dispatcher) refreshChannels(ctx context.Context) ([]*domain.Channel, error) {
	raw, err := d.deps.Messenger.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	channels := make([]*domain.Channel, 0, len(raw))
	for _, r := range raw {
		channels = append(channels, &domain.Channel{ID: r.ID, Name: r.Name})
	}

	if err := d.deps.Brain.SaveChannels(ctx, channels); err != nil {
		return nil, err
	}
	return channels, nil
}
