package keyboard

import (
	"github.com/m3rciful/officebot/core/dialog"

	tele "gopkg.in/telebot.v4"
)

// Inline converts a dialog keyboard to Telegram inline markup. Buttons with a
// URL open the link; all others carry their payload as raw callback data.
// A nil or empty keyboard returns nil.
func Inline(kb dialog.Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	inline := make([][]tele.InlineButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			btn := tele.InlineButton{Text: b.Text}
			if b.URL != "" {
				btn.URL = b.URL
			} else {
				btn.Data = b.Payload
			}
			r = append(r, btn)
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Chunk splits a flat list of buttons into rows with up to n buttons per row.
// If n <= 1, every button gets its own row.
func Chunk(buttons []dialog.Button, n int) dialog.Keyboard {
	if n <= 1 {
		out := make(dialog.Keyboard, 0, len(buttons))
		for _, b := range buttons {
			out = append(out, []dialog.Button{b})
		}
		return out
	}
	var rows dialog.Keyboard
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, append([]dialog.Button(nil), buttons[i:end]...))
	}
	return rows
}
