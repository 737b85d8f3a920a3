package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Runner executes a resolved command.
type Runner interface {
	RunCommand(ctx context.Context, commandName string, opts *domain.CommandOptions)
	Commands() map[string]string
}

// Messenger delivers conversational replies.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, msg *domain.Message) error
	SendError(ctx context.Context, channelID string)
}

type sessionKey struct {
	channel string
	user    string
}

type session struct {
	history []openai.ChatCompletionMessageParamUnion
}

// Bridge turns free-form messages into either a command invocation or a
// plain conversational reply. One session lives per (channel, user) pair for
// the duration of an exchange and is dropped once the exchange completes.
type Bridge struct {
	client     *openai.Client
	model      openai.ChatModel
	runner     Runner
	messenger  Messenger
	logger     *zap.Logger
	sessionsMu sync.Mutex
	sessions   map[sessionKey]*session
}

func NewBridge(apiKey, model string, runner Runner, messenger Messenger, logger *zap.Logger) (*Bridge, error) {
	if apiKey == "" {
		return nil, errors.NewValidationError("OpenAI API key is required", "apiKey", "")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &Bridge{
		client:    &client,
		model:     chatModel(model),
		runner:    runner,
		messenger: messenger,
		logger:    logger,
		sessions:  make(map[sessionKey]*session),
	}, nil
}

func chatModel(model string) openai.ChatModel {
	switch model {
	case "gpt-5":
		return openai.ChatModelGPT5
	case "gpt-5-mini":
		return openai.ChatModelGPT5Mini
	case "gpt-5-nano":
		return openai.ChatModelGPT5Nano
	case "gpt-4.1":
		return openai.ChatModelGPT4_1
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	default:
		return openai.ChatModelGPT5Mini
	}
}

// intentResult is the JSON contract the model is instructed to answer with.
type intentResult struct {
	Command string `json:"command"`
	Params  struct {
		Platform string `json:"platform"`
		Query    string `json:"query"`
		Language string `json:"language"`
		Username string `json:"username"`
	} `json:"params"`
	Reply string `json:"reply"`
}

// HandleMessage classifies text and either dispatches the matching command
// or answers conversationally. Errors short of delivery are logged and
// surfaced to the channel as the generic apology.
func (b *Bridge) HandleMessage(ctx context.Context, channelID, userID, text string) {
	key := sessionKey{channel: channelID, user: userID}
	s := b.findOrCreateSession(key)
	defer b.dropSession(key)

	result, err := b.classify(ctx, s, text)
	if err != nil {
		b.logger.Error("Failed to classify message",
			zap.String("channel", channelID),
			zap.String("user", userID),
			zap.Error(err),
		)
		b.messenger.SendError(ctx, channelID)
		return
	}

	if result.Command != "" {
		opts := &domain.CommandOptions{
			UserID:    userID,
			ChannelID: channelID,
			Platform:  strings.ToLower(result.Params.Platform),
			Query:     result.Params.Query,
			Language:  strings.ToLower(result.Params.Language),
		}
		if result.Params.Username != "" {
			opts.RequestedUser = &domain.UserRef{Name: result.Params.Username}
		}
		b.runner.RunCommand(ctx, result.Command, opts)
		return
	}

	if result.Reply == "" {
		b.logger.Debug("Model produced neither command nor reply",
			zap.String("channel", channelID),
		)
		return
	}
	if err := b.messenger.SendMessage(ctx, channelID, domain.TextMessage(result.Reply)); err != nil {
		b.logger.Error("Failed to deliver reply", zap.String("channel", channelID), zap.Error(err))
	}
}

func (b *Bridge) classify(ctx context.Context, s *session, text string) (*intentResult, error) {
	if len(s.history) == 0 {
		s.history = append(s.history, openai.SystemMessage(b.systemPrompt()))
	}
	s.history = append(s.history, openai.UserMessage(text))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               b.model,
		Messages:            s.history,
		MaxCompletionTokens: openai.Int(512),
	})
	if err != nil {
		return nil, errors.NewServiceError("chat completion failed", "openai", "classify", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewServiceError("no choices in completion", "openai", "classify", nil)
	}

	content := resp.Choices[0].Message.Content
	s.history = append(s.history, openai.AssistantMessage(content))

	var result intentResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, errors.NewServiceError("invalid intent payload", "openai", "classify", err)
	}
	return &result, nil
}

func (b *Bridge) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You route messages for a Slack chat bot. Respond with valid JSON only, ")
	sb.WriteString(`shaped as {"command": "", "params": {"platform": "", "query": "", "language": "", "username": ""}, "reply": ""}. `)
	sb.WriteString("If the message matches one of these commands, set \"command\" and its params:\n")
	for name, description := range b.runner.Commands() {
		fmt.Fprintf(&sb, "- %s: %s\n", name, description)
	}
	sb.WriteString("Otherwise leave \"command\" empty and answer in \"reply\" with a short, friendly message.")
	return sb.String()
}

// extractJSON tolerates models that wrap the payload in a code fence.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}

func (b *Bridge) findOrCreateSession(key sessionKey) *session {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()

	if s, ok := b.sessions[key]; ok {
		return s
	}
	s := &session{}
	b.sessions[key] = s
	return s
}

func (b *Bridge) dropSession(key sessionKey) {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	delete(b.sessions, key)
}
