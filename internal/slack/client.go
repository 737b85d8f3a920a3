package slack

import (
	"context"
	"fmt"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Client wraps the Slack Web API with the narrow surface the bot consumes.
type Client struct {
	api               *slack.Client
	escalationContact string
	logger            *zap.Logger
}

func NewClient(token, escalationContact string, logger *zap.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.NewValidationError("Slack bot token is required", "token", token)
	}
	if escalationContact == "" {
		escalationContact = "@yenbekbay"
	}

	return &Client{
		api:               slack.New(token),
		escalationContact: escalationContact,
		logger:            logger,
	}, nil
}

// SendMessage delivers a text message with optional attachments. A message
// with no text or no channel is dropped without error, guarding against
// malformed replies from upstream actions.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *domain.Message) error {
	if msg == nil || msg.Text == "" || channelID == "" {
		return nil
	}

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Attachments) > 0 {
		attachments := make([]slack.Attachment, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			fields := make([]slack.AttachmentField, 0, len(a.Fields))
			for _, f := range a.Fields {
				fields = append(fields, slack.AttachmentField{
					Title: f.Title,
					Value: f.Value,
					Short: f.Short,
				})
			}
			attachments = append(attachments, slack.Attachment{
				Fallback:  a.Fallback,
				Title:     a.Title,
				TitleLink: a.TitleLink,
				Text:      a.Text,
				ImageURL:  a.ImageURL,
				Fields:    fields,
			})
		}
		opts = append(opts, slack.MsgOptionAttachments(attachments...))
	}

	if _, _, err := c.api.PostMessageContext(ctx, channelID, opts...); err != nil {
		c.logger.Error("Failed to send message",
			zap.String("channel", channelID),
			zap.Error(err),
		)
		return errors.NewAPIError("failed to send message", 500, map[string]any{
			"channel": channelID,
		}).WithCause(err)
	}

	return nil
}

// SendError posts the fixed apology reply. Send failures are logged, never
// propagated; the error path must not produce further errors.
func (c *Client) SendError(ctx context.Context, channelID string) {
	text := fmt.Sprintf("Something went wrong. Please try again or contact %s", c.escalationContact)
	if err := c.SendMessage(ctx, channelID, domain.TextMessage(text)); err != nil {
		c.logger.Error("Failed to send error reply",
			zap.String("channel", channelID),
			zap.Error(err),
		)
	}
}

// ListUsers fetches the full workspace roster, including bots and deleted
// accounts; the directory refresh decides what to keep.
func (c *Client) ListUsers(ctx context.Context) ([]slack.User, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		c.logger.Error("Failed to get users on the team", zap.Error(err))
		return nil, errors.NewAPIError("failed to list users", 500, nil).WithCause(err)
	}

	c.logger.Debug("Got users on the team", zap.Int("count", len(users)))
	return users, nil
}

// ListChannels pages through all public channels.
func (c *Client) ListChannels(ctx context.Context) ([]slack.Channel, error) {
	var channels []slack.Channel
	var cursor string

	for {
		convs, nextCursor, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel"},
			ExcludeArchived: true,
			Limit:           200,
			Cursor:          cursor,
		})
		if err != nil {
			c.logger.Error("Failed to get channels on the team", zap.Error(err))
			return nil, errors.NewAPIError("failed to list channels", 500, nil).WithCause(err)
		}

		channels = append(channels, convs...)
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	c.logger.Debug("Got channels on the team", zap.Int("count", len(channels)))
	return channels, nil
}

func (c *Client) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		c.logger.Error("Failed to get user info", zap.String("user", userID), zap.Error(err))
		return nil, errors.NewAPIError("failed to get user info", 500, map[string]any{
			"user": userID,
		}).WithCause(err)
	}
	return user, nil
}

func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error) {
	channel, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		c.logger.Error("Failed to get channel info", zap.String("channel", channelID), zap.Error(err))
		return nil, errors.NewAPIError("failed to get channel info", 500, map[string]any{
			"channel": channelID,
		}).WithCause(err)
	}
	return channel, nil
}

// ConnectURL asks the Web API for a fresh RTM websocket URL. URLs are single
// use; the stream requests a new one on every (re)connect.
func (c *Client) ConnectURL(ctx context.Context) (string, error) {
	_, url, err := c.api.ConnectRTMContext(ctx)
	if err != nil {
		c.logger.Error("Failed to obtain RTM connect URL", zap.Error(err))
		return "", errors.NewAPIError("failed to obtain RTM connect URL", 500, nil).WithCause(err)
	}
	return url, nil
}

// BotUserID returns the authed bot user id, used to ignore the bot's own
// messages.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", errors.NewAPIError("auth test failed", 500, nil).WithCause(err)
	}
	return resp.UserID, nil
}
