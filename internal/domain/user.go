package domain

// User is a directory entry synced from the Slack roster. Optional profile
// fields are omitted from storage when the upstream record does not carry
// them, so a zero value here means "absent".
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	RealName  string `json:"real_name,omitempty"`
	Email     string `json:"email,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
}

// UserRef points at a user by id or by display name, whichever the inbound
// event carried. An empty ref means "no explicit target".
type UserRef struct {
	ID   string
	Name string
}

func (r *UserRef) IsZero() bool {
	return r == nil || (r.ID == "" && r.Name == "")
}

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Virtual channel names for id namespaces that are never persisted.
const (
	DirectMessageChannelName  = "direct message"
	PrivateChannelChannelName = "private channel"
)

// VirtualChannel maps direct-message ("D...") and private-group ("G...") ids
// to their synthetic channels. Returns nil for regular channel ids.
func VirtualChannel(channelID string) *Channel {
	if channelID == "" {
		return nil
	}
	switch channelID[0] {
	case 'D':
		return &Channel{ID: channelID, Name: DirectMessageChannelName}
	case 'G':
		return &Channel{ID: channelID, Name: PrivateChannelChannelName}
	}
	return nil
}

// IsVirtual reports whether the channel name is one of the synthetic
// direct-message / private-group names.
func (c *Channel) IsVirtual() bool {
	return c != nil &&
		(c.Name == DirectMessageChannelName || c.Name == PrivateChannelChannelName)
}
