package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Redact hides bot tokens that net/http puts into request URLs.
func Redact(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}

// Kind names the failure class of a Telegram call for logs: timeout, dns,
// dial, tls, canceled, http_4xx, http_5xx or unknown.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	switch status := StatusCode(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// StatusCode extracts the Bot API error code, or 0 when err carries none.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return 0
	}

	// telebot formats unknown API errors as "telegram: <description> (<code>)".
	msg := err.Error()
	open, end := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open >= 0 && end > open+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : end])); convErr == nil {
			return code
		}
	}
	return 0
}
