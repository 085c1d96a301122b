package keyboard

import (
	"testing"

	"github.com/m3rciful/officebot/core/dialog"
)

func TestInline(t *testing.T) {
	if Inline(nil) != nil {
		t.Fatal("nil keyboard should give nil markup")
	}
	kb := dialog.Keyboard{
		dialog.Row(dialog.Button{Text: "Portal", URL: "https://portal.example.org"}),
		nil,
		dialog.Row(dialog.Button{Text: "Back", Payload: "links:back"}, dialog.Button{Text: "Done", Payload: "done"}),
	}
	m := Inline(kb)
	if m == nil || len(m.InlineKeyboard) != 2 {
		t.Fatalf("markup = %+v", m)
	}
	if m.InlineKeyboard[0][0].URL != "https://portal.example.org" || m.InlineKeyboard[0][0].Data != "" {
		t.Fatalf("url button = %+v", m.InlineKeyboard[0][0])
	}
	if got := m.InlineKeyboard[1][1]; got.Data != "done" || got.Unique != "" {
		t.Fatalf("callback button = %+v", got)
	}
}

func TestChunk(t *testing.T) {
	buttons := []dialog.Button{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	if rows := Chunk(buttons, 2); len(rows) != 2 || len(rows[0]) != 2 || rows[1][0].Text != "c" {
		t.Fatalf("Chunk(2) = %+v", rows)
	}
	if rows := Chunk(buttons, 0); len(rows) != 3 {
		t.Fatalf("Chunk(0) = %+v", rows)
	}
}
