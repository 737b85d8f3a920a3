package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/slack"
	"go.uber.org/zap"
)

// Dispatcher runs a named command against resolved identities.
type Dispatcher interface {
	RunCommand(ctx context.Context, commandName string, opts *domain.CommandOptions)
}

// Conversation handles messages no pattern claimed.
type Conversation interface {
	HandleMessage(ctx context.Context, channelID, userID, text string)
}

// pattern binds a compiled expression to the command it triggers. build
// turns the submatches into command options; UserID and ChannelID are
// filled in by the router.
type pattern struct {
	re *regexp.Regexp
	// ambient patterns fire on any channel message, not just direct
	// messages and mentions.
	ambient bool
	build   func(match []string) (string, *domain.CommandOptions)
}

// Bot routes RTM events to dispatcher commands. Messages from the bot
// itself, from other bots, and message edits are dropped before matching.
type Bot struct {
	stream          *slack.Stream
	dispatcher      Dispatcher
	conversation    Conversation
	botUserID       string
	ignoredChannels map[string]bool
	mentionPrefix   *regexp.Regexp
	patterns        []pattern
	unsubscribe     func()
	logger          *zap.Logger
}

func New(stream *slack.Stream, dispatcher Dispatcher, conversation Conversation, botUserID string, ignoredChannels []string, logger *zap.Logger) *Bot {
	ignored := make(map[string]bool, len(ignoredChannels))
	for _, channel := range ignoredChannels {
		ignored[channel] = true
	}

	return &Bot{
		stream:          stream,
		dispatcher:      dispatcher,
		conversation:    conversation,
		botUserID:       botUserID,
		ignoredChannels: ignored,
		mentionPrefix:   regexp.MustCompile(fmt.Sprintf(`^\s*<@%s(?:\|[^>]*)?>[:,]?\s*`, regexp.QuoteMeta(botUserID))),
		patterns:        buildPatterns(),
		logger:          logger,
	}
}

func buildPatterns() []pattern {
	return []pattern{
		{
			re: regexp.MustCompile(`(?i)^(ios|android)\s+lib(?:rarie)?s\s+list$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandGetLibraryCategories, &domain.CommandOptions{
					Platform: strings.ToLower(match[1]),
				}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^(ios|android)\s+lib(?:rarie)?s(?:\s+for\s+|\s+)(.+)$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandGetLibraries, &domain.CommandOptions{
					Platform: strings.ToLower(match[1]),
					Query:    match[2],
				}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^(?:hi|hello|whatsup|howdy|greetings|privet|salem)(?:\s.*)?$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandGreet, &domain.CommandOptions{}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^adventure\s*time[!.]*$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandAdventureTime, &domain.CommandOptions{}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^trending(?:\s+repos)?(?:\s+for\s+(\S+))?$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandGetTrendingRepos, &domain.CommandOptions{
					Language: strings.ToLower(match[1]),
				}
			},
		},
		{
			re:      regexp.MustCompile(`^<@(\w+)(?:\|[^>]*)?>\s*:?\s*(\+\+|--|\+1|-1)$`),
			ambient: true,
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandVote, &domain.CommandOptions{
					VotedUser: &domain.UserRef{ID: match[1]},
					Operator:  match[2],
				}
			},
		},
		{
			re:      regexp.MustCompile(`^@?([\w.-]+)\s*:?\s*(\+\+|--|\+1|-1)$`),
			ambient: true,
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandVote, &domain.CommandOptions{
					VotedUser: &domain.UserRef{Name: match[1]},
					Operator:  match[2],
				}
			},
		},
		{
			// Elliptical vote: operator alone hits the channel's last
			// voted user.
			re:      regexp.MustCompile(`^(\+\+|--)$`),
			ambient: true,
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandVote, &domain.CommandOptions{
					Operator: match[1],
				}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^score\s+(?:for\s+)?(?:<@(\w+)(?:\|[^>]*)?>|@?([\w.-]+))$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				ref := &domain.UserRef{ID: match[1]}
				if ref.ID == "" {
					ref.Name = match[2]
				}
				return domain.CommandUserScore, &domain.CommandOptions{RequestedUser: ref}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^(?:my\s+)?score$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandUserScore, &domain.CommandOptions{}
			},
		},
		{
			re: regexp.MustCompile(`(?i)^leaderboard$`),
			build: func(match []string) (string, *domain.CommandOptions) {
				return domain.CommandLeaderboard, &domain.CommandOptions{}
			},
		},
	}
}

// Start subscribes to the event stream and connects it.
func (b *Bot) Start(ctx context.Context) error {
	b.unsubscribe = b.stream.OnEvent(func(event *slack.Event) {
		go b.route(ctx, event)
	})
	return b.stream.Connect(ctx)
}

// Stop tears down the subscription and the stream.
func (b *Bot) Stop() error {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	return b.stream.Disconnect()
}

func (b *Bot) route(ctx context.Context, event *slack.Event) {
	switch event.Type {
	case slack.EventTypeHello:
		b.logger.Info("Connected to Slack")
	case slack.EventTypeMessage:
		b.routeMessage(ctx, event)
	case slack.EventTypeReactionAdded:
		b.routeReaction(ctx, event)
	case slack.EventTypeMemberJoinedChannel:
		b.dispatcher.RunCommand(ctx, domain.CommandWelcomeUser, &domain.CommandOptions{
			UserID:    event.User,
			ChannelID: event.Channel,
		})
	}
}

func (b *Bot) routeMessage(ctx context.Context, event *slack.Event) {
	if event.Subtype != "" || event.BotID != "" || event.User == "" || event.User == b.botUserID {
		return
	}
	if b.ignoredChannels[event.Channel] {
		return
	}

	text := strings.TrimSpace(event.Text)
	directed := strings.HasPrefix(event.Channel, "D")
	if loc := b.mentionPrefix.FindStringIndex(text); loc != nil {
		directed = true
		text = strings.TrimSpace(text[loc[1]:])
	}

	for _, p := range b.patterns {
		if !directed && !p.ambient {
			continue
		}
		match := p.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		commandName, opts := p.build(match)
		opts.UserID = event.User
		opts.ChannelID = event.Channel
		if commandName == domain.CommandUserScore && opts.RequestedUser.IsZero() {
			opts.RequestedUser = &domain.UserRef{ID: event.User}
		}

		b.logger.Debug("Matched message pattern",
			zap.String("command", commandName),
			zap.String("channel", event.Channel),
		)
		b.dispatcher.RunCommand(ctx, commandName, opts)
		return
	}

	if directed && text != "" {
		b.conversation.HandleMessage(ctx, event.Channel, event.User, text)
	}
}

// routeReaction treats thumbs reactions on a message as votes for its
// author.
func (b *Bot) routeReaction(ctx context.Context, event *slack.Event) {
	if event.User == "" || event.User == b.botUserID || event.ItemUser == "" {
		return
	}
	if event.Item == nil || event.Item.Type != "message" || b.ignoredChannels[event.Item.Channel] {
		return
	}

	var operator string
	switch event.Reaction {
	case "thumbsup", "+1":
		operator = "+1"
	case "thumbsdown", "-1":
		operator = "-1"
	default:
		return
	}

	b.dispatcher.RunCommand(ctx, domain.CommandVote, &domain.CommandOptions{
		UserID:    event.User,
		ChannelID: event.Item.Channel,
		VotedUser: &domain.UserRef{ID: event.ItemUser},
		Operator:  operator,
	})
}
