package domain

// Attachment is the subset of the Slack attachment payload the bot renders.
type Attachment struct {
	Fallback  string
	Title     string
	TitleLink string
	Text      string
	ImageURL  string
	Fields    []AttachmentField
}

type AttachmentField struct {
	Title string
	Value string
	Short bool
}

// Message is an outbound chat message: plain text plus optional attachments.
type Message struct {
	Text        string
	Attachments []Attachment
}

// TextMessage wraps plain text as a Message.
func TextMessage(text string) *Message {
	return &Message{Text: text}
}
