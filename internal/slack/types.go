package slack

// Event is the subset of the RTM envelope the bot routes on.
type Event struct {
	Type      string     `json:"type"`
	Subtype   string     `json:"subtype,omitempty"`
	Channel   string     `json:"channel,omitempty"`
	User      string     `json:"user,omitempty"`
	Text      string     `json:"text,omitempty"`
	Timestamp string     `json:"ts,omitempty"`
	BotID     string     `json:"bot_id,omitempty"`
	Reaction  string     `json:"reaction,omitempty"`
	ItemUser  string     `json:"item_user,omitempty"`
	Item      *EventItem `json:"item,omitempty"`
}

// EventItem identifies the message a reaction was attached to.
type EventItem struct {
	Type      string `json:"type"`
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"ts,omitempty"`
}

// RTM event types the router handles.
const (
	EventTypeHello               = "hello"
	EventTypeMessage             = "message"
	EventTypeReactionAdded       = "reaction_added"
	EventTypeMemberJoinedChannel = "member_joined_channel"
)

type StreamState string

const (
	StreamStateConnecting   StreamState = "CONNECTING"
	StreamStateConnected    StreamState = "CONNECTED"
	StreamStateDisconnected StreamState = "DISCONNECTED"
	StreamStateReconnecting StreamState = "RECONNECTING"
	StreamStateFailed       StreamState = "FAILED"
)

func (s StreamState) String() string {
	return string(s)
}
