package dialog

import (
	"context"
	"fmt"
)

// MaxPayloadBytes is the Telegram limit for callback data.
const MaxPayloadBytes = 64

// Button is an inline keyboard button. Exactly one of Payload and URL is set.
type Button struct {
	Text    string
	Payload string
	URL     string
}

// CheckPayload reports a payload Telegram would reject.
func CheckPayload(p string) error {
	if p == "" {
		return fmt.Errorf("dialog: empty button payload")
	}
	if len(p) > MaxPayloadBytes {
		return fmt.Errorf("dialog: button payload %q is %d bytes, limit %d", p, len(p), MaxPayloadBytes)
	}
	return nil
}

// Keyboard is a list of button rows. A nil Keyboard removes inline buttons.
type Keyboard [][]Button

// Row groups buttons into one keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Outbox performs outbound effects. Implementations return only after the
// message was delivered or delivery definitively failed.
type Outbox interface {
	// Send posts a new message and returns its ID.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	// Edit replaces the text and keyboard of an existing message.
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
}
