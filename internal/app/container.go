package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/bmo-slack-bot-go/internal/bot"
	"github.com/kapu/bmo-slack-bot-go/internal/brain"
	"github.com/kapu/bmo-slack-bot-go/internal/config"
	"github.com/kapu/bmo-slack-bot-go/internal/dispatch"
	"github.com/kapu/bmo-slack-bot-go/internal/library"
	"github.com/kapu/bmo-slack-bot-go/internal/nlu"
	"github.com/kapu/bmo-slack-bot-go/internal/provider"
	"github.com/kapu/bmo-slack-bot-go/internal/score"
	"github.com/kapu/bmo-slack-bot-go/internal/slack"
	"github.com/kapu/bmo-slack-bot-go/internal/store"
	"github.com/kapu/bmo-slack-bot-go/internal/trending"
	"go.uber.org/zap"
)

// Container bundles the assembled services behind the running bot.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Bot    *bot.Bot

	closers []func()
}

// Close unwinds everything Build stood up, in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build assembles the store, brain, engines, dispatcher and event stream.
// Heavy initialization happens here so the bot itself stays orchestration
// only.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	storeClient, err := store.NewClient(store.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create store client: %w", err)
	}
	closers = append(closers, func() {
		_ = storeClient.Close()
	})

	brainSvc := brain.New(storeClient, logger)
	keeper := score.NewKeeper(brainSvc, logger)

	slackClient, err := slack.NewClient(cfg.Slack.BotToken, cfg.Bot.EscalationContact, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create slack client: %w", err)
	}

	botUserID, err := slackClient.BotUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to identify bot user: %w", err)
	}
	logger.Info("Authenticated with Slack", zap.String("bot_user", botUserID))

	httpProvider := provider.NewProvider(logger)
	libraryEngine := library.NewEngine(httpProvider, logger)
	trendingEngine := trending.NewEngine(httpProvider, cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, logger)

	dispatcher := dispatch.NewDispatcher(&dispatch.Dependencies{
		Messenger:    slackClient,
		Brain:        brainSvc,
		Keeper:       keeper,
		Libraries:    libraryEngine,
		Trending:     trendingEngine,
		IntroChannel: cfg.Bot.IntroChannel,
		Logger:       logger,
	})

	bridge, err := nlu.NewBridge(cfg.OpenAI.APIKey, cfg.OpenAI.Model, dispatcher, slackClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation bridge: %w", err)
	}

	stream := slack.NewStream(slackClient.ConnectURL, 5, 5*time.Second, logger)
	chatBot := bot.New(stream, dispatcher, bridge, botUserID, cfg.Bot.IgnoredChannels, logger)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Bot:     chatBot,
		closers: closers,
	}, nil
}
