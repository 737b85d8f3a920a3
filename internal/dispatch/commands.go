package dispatch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/score"
	"go.uber.org/zap"
)

var greetings = []string{
	"Hey there!",
	"Greetings, human!",
	"Yo!",
	"Salem!",
	"Privet!",
}

var adventureTimeGifs = []string{
	"http://i.giphy.com/10HegwKCnl0krS.gif",
	"http://i.giphy.com/CDMz3fckRXXDG.gif",
	"http://i.giphy.com/US2sbVPm6jBK0.gif",
	"http://i.giphy.com/ALCI3eTii7qOk.gif",
	"http://i.giphy.com/f31DK1KpGsyMU.gif",
	"http://i.giphy.com/fHiz7HAUlSaIg.gif",
}

var welcomeQuestions = []string{
	"Как тебя зовут?",
	"Чем ты занимаешься и/или на каких языках программирования ты пишешь?",
	"Ссылки на твой блог и/или профиль в Гитхабе",
}

func (d *Dispatcher) buildCommands() map[string]*domain.Command {
	return map[string]*domain.Command{
		domain.CommandGreet: {
			Description: "Greeting",
			Action:      d.greetAction,
		},
		domain.CommandAdventureTime: {
			Description: "Sending an Adventure Time GIF",
			Action:      d.adventureTimeAction,
		},
		domain.CommandWelcomeUser: {
			Description: "Welcoming",
			Validate: func(opts *domain.CommandOptions) bool {
				return opts.Channel.Name == d.deps.IntroChannel
			},
			Action: d.welcomeUserAction,
		},
		domain.CommandGetLibraryCategories: {
			Description: "Getting list of library categories",
			Validate: func(opts *domain.CommandOptions) bool {
				return opts.Platform != ""
			},
			Action: d.libraryCategoriesAction,
		},
		domain.CommandGetLibraries: {
			Description: "Getting libraries",
			Validate: func(opts *domain.CommandOptions) bool {
				return opts.Platform != "" && opts.Query != ""
			},
			Action: d.librariesAction,
		},
		domain.CommandGetTrendingRepos: {
			Description: "Getting trending repos",
			Action:      d.trendingReposAction,
		},
		domain.CommandVote: {
			Description: "Processing vote",
			Action:      d.voteAction,
		},
		domain.CommandUserScore: {
			Description: "Getting score",
			Validate: func(opts *domain.CommandOptions) bool {
				return !opts.RequestedUser.IsZero()
			},
			Action: d.userScoreAction,
		},
		domain.CommandLeaderboard: {
			Description: "Getting leaderboard",
			Action:      d.leaderboardAction,
		},
	}
}

func (d *Dispatcher) greetAction(ctx context.Context, opts *domain.CommandOptions) error {
	greeting := fmt.Sprintf("@%s: %s", opts.User.Name, greetings[rand.IntN(len(greetings))])
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(greeting))
}

func (d *Dispatcher) adventureTimeAction(ctx context.Context, opts *domain.CommandOptions) error {
	gif := adventureTimeGifs[rand.IntN(len(adventureTimeGifs))]

	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, &domain.Message{
		Text: "Adventure time!",
		Attachments: []domain.Attachment{{
			Fallback: "Adventure time GIF",
			ImageURL: gif,
		}},
	})
}

func (d *Dispatcher) welcomeUserAction(ctx context.Context, opts *domain.CommandOptions) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Добро пожаловать, @%s! Не мог бы ты вкратце рассказать о себе?", opts.User.Name)
	for _, question := range welcomeQuestions {
		sb.WriteString("\n- ")
		sb.WriteString(question)
	}
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(sb.String()))
}

func (d *Dispatcher) libraryCategoriesAction(ctx context.Context, opts *domain.CommandOptions) error {
	tree, err := d.deps.Libraries.CategoriesTree(ctx, opts.Platform)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Library categories for %s:\n```\n%s\n```",
		domain.FormattedPlatform(opts.Platform), tree)
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(text))
}

func (d *Dispatcher) librariesAction(ctx context.Context, opts *domain.CommandOptions) error {
	query, swiftOnly := parseLibraryQuery(opts.Query)

	libraries, err := d.deps.Libraries.LibrariesForQuery(ctx, opts.Platform, query)
	if err != nil {
		return err
	}
	if swiftOnly {
		filtered := libraries[:0]
		for _, library := range libraries {
			if library.Swift {
				filtered = append(filtered, library)
			}
		}
		libraries = filtered
	}

	if len(libraries) == 0 {
		text := fmt.Sprintf("Unfortunately, no libraries were found for %q", query)
		return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(text))
	}

	suffix := ""
	if swiftOnly {
		suffix = " (Swift only)"
	}
	msg := &domain.Message{
		Text: fmt.Sprintf("These are some %s libraries I found for %q%s:",
			domain.FormattedPlatform(opts.Platform), query, suffix),
	}
	for _, library := range libraries {
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			Fallback:  library.Title,
			Title:     library.Title,
			TitleLink: library.Link,
			Text:      library.Description,
		})
	}
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, msg)
}

// parseLibraryQuery splits the free-text query from its flags; the only
// recognized flag is --swift.
func parseLibraryQuery(raw string) (query string, swiftOnly bool) {
	words := make([]string, 0)
	for _, word := range strings.Fields(raw) {
		if word == "--swift" {
			swiftOnly = true
			continue
		}
		words = append(words, word)
	}
	return strings.Join(words, " "), swiftOnly
}

func (d *Dispatcher) trendingReposAction(ctx context.Context, opts *domain.CommandOptions) error {
	language := strings.ToLower(opts.Language)

	repos, err := d.deps.Trending.TrendingRepos(ctx, language)
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		text := "I couldn't find any trending repos"
		if language != "" {
			text += fmt.Sprintf(" for %s", language)
		}
		return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(text))
	}

	label := language
	if label == "" {
		label = "all languages"
	}
	msg := &domain.Message{Text: fmt.Sprintf("Trending repos for %s:", label)}
	for _, repo := range repos {
		attachment := domain.Attachment{
			Fallback:  repo.Name,
			Title:     repo.Name,
			TitleLink: repo.Link,
			Text:      repo.Description,
		}
		if repo.Trend > 0 {
			attachment.Fields = append(attachment.Fields, domain.AttachmentField{
				Title: "Trend",
				Value: fmt.Sprintf("+%d", repo.Trend),
				Short: true,
			})
		}
		if repo.Language != "" {
			attachment.Fields = append(attachment.Fields, domain.AttachmentField{
				Title: "Language",
				Value: repo.Language,
				Short: true,
			})
		}
		msg.Attachments = append(msg.Attachments, attachment)
	}
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, msg)
}

// voteAction resolves the vote target (explicit id, then display name, then
// the channel's last voted user), evaluates the vote and persists any
// non-zero outcome. Operator validation happens inside ParseVote so that a
// malformed vote propagates as a command failure rather than dying silently.
func (d *Dispatcher) voteAction(ctx context.Context, opts *domain.CommandOptions) error {
	votedUser, err := d.resolveVoteTarget(ctx, opts)
	if err != nil {
		return err
	}

	vote, err := score.ParseVote(opts.User, votedUser, opts.Operator)
	if err != nil {
		return err
	}

	if err := d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(vote.Message)); err != nil {
		return err
	}

	if vote.Points == 0 {
		return nil
	}

	if err := d.deps.Keeper.ApplyVote(ctx, opts.Channel.ID, votedUser.ID, vote.Points); err != nil {
		return err
	}

	direction := "up"
	if vote.Points < 0 {
		direction = "down"
	}
	d.deps.Logger.Info(fmt.Sprintf("User %s %svoted user %s", opts.User.Name, direction, votedUser.Name),
		zap.String("channel", opts.Channel.ID),
	)
	return nil
}

func (d *Dispatcher) resolveVoteTarget(ctx context.Context, opts *domain.CommandOptions) (*domain.User, error) {
	switch {
	case opts.VotedUser != nil && opts.VotedUser.ID != "":
		return d.resolveUser(ctx, opts.VotedUser.ID)
	case opts.VotedUser != nil && opts.VotedUser.Name != "":
		return d.FindUserByName(ctx, opts.VotedUser.Name)
	}

	lastVoted, err := d.deps.Brain.GetLastVotedUser(ctx, opts.Channel.ID)
	if err != nil {
		return nil, err
	}
	if lastVoted == "" {
		return nil, nil
	}
	return d.resolveUser(ctx, lastVoted)
}

func (d *Dispatcher) userScoreAction(ctx context.Context, opts *domain.CommandOptions) error {
	var (
		user *domain.User
		err  error
	)
	if opts.RequestedUser.ID != "" {
		user, err = d.resolveUser(ctx, opts.RequestedUser.ID)
	} else {
		user, err = d.FindUserByName(ctx, opts.RequestedUser.Name)
	}
	if err != nil {
		return err
	}
	if user == nil {
		d.deps.Logger.Debug("Dropping score request for unresolvable user",
			zap.String("id", opts.RequestedUser.ID),
			zap.String("name", opts.RequestedUser.Name),
		)
		return nil
	}

	points, err := d.deps.Brain.GetUserScore(ctx, user.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("@%s: your score is: %d", user.Name, points)
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(text))
}

func (d *Dispatcher) leaderboardAction(ctx context.Context, opts *domain.CommandOptions) error {
	board, err := d.deps.Keeper.Leaderboard(ctx)
	if err != nil {
		return err
	}
	return d.deps.Messenger.SendMessage(ctx, opts.Channel.ID, domain.TextMessage(board))
}
