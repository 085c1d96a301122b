package dialog

import "strings"

// Kind classifies inbound events.
type Kind int

const (
	// KindCommand is a slash command such as /start.
	KindCommand Kind = iota + 1
	// KindButton is an inline keyboard button press.
	KindButton
	// KindText is a free-text message that is not a command.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Event is a transport-neutral inbound update.
type Event struct {
	Kind      Kind
	Command   string // command name without the leading slash
	Payload   string // button payload
	Text      string // message body
	UserID    int64
	ChatID    int64
	MessageID int // message carrying the pressed button
	UserName  string
}

// CommandEvent builds a command event. A leading slash and a @botname suffix are stripped.
func CommandEvent(name string, userID, chatID int64) Event {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return Event{Kind: KindCommand, Command: strings.ToLower(name), UserID: userID, ChatID: chatID}
}

// ButtonEvent builds a button press event.
func ButtonEvent(payload string, userID, chatID int64, messageID int) Event {
	return Event{Kind: KindButton, Payload: payload, UserID: userID, ChatID: chatID, MessageID: messageID}
}

// TextEvent builds a free-text message event.
func TextEvent(body string, userID, chatID int64) Event {
	return Event{Kind: KindText, Text: body, UserID: userID, ChatID: chatID}
}

// WithUserName returns a copy of the event carrying the sender's display name.
func (e Event) WithUserName(name string) Event {
	e.UserName = name
	return e
}
