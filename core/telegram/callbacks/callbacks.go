// Package callbacks decodes inline button data into dialog payloads.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Payload returns the dialog payload carried by cb. Raw data is returned as
// is. Telebot's "\f<unique>|<data>" encoding becomes "<unique>:<data>", or
// just "<unique>" when data is empty.
func Payload(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	raw := cb.Data
	if cb.Unique != "" {
		if raw == "" {
			return cb.Unique
		}
		return cb.Unique + ":" + raw
	}
	if !strings.HasPrefix(raw, "\f") {
		return raw
	}
	unique, data, _ := strings.Cut(strings.TrimPrefix(raw, "\f"), "|")
	unique = strings.TrimSpace(unique)
	if data == "" {
		return unique
	}
	return unique + ":" + data
}

// Key is the part of a payload before the first ':'.
func Key(payload string) string {
	key, _, _ := strings.Cut(payload, ":")
	return key
}
