package netutil

import (
	"context"
	"errors"
	"net"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{timeoutErr{}, "timeout"},
		{tele.FloodError{RetryAfter: 1}, "http_4xx"},
		{errors.New("telegram: internal error (502)"), "http_5xx"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(errors.New("telegram: bot was blocked by the user (403)")); got != 403 {
		t.Fatalf("StatusCode = %d", got)
	}
	if got := StatusCode(errors.New("no code (abc)")); got != 0 {
		t.Fatalf("StatusCode without code = %d", got)
	}
}

func TestRedact(t *testing.T) {
	got := Redact(`Post "https://api.telegram.org/bot123456:ABC-def_1/sendMessage": timeout`)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("Redact = %q", got)
	}
}
