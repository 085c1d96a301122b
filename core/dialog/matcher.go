package dialog

import (
	"regexp"
	"strings"
)

// Matcher decides whether a route accepts an event.
type Matcher interface {
	Match(ev Event) bool
	String() string
}

type commandMatcher string

// OnCommand matches a command by exact name, with or without the leading slash.
func OnCommand(name string) Matcher {
	return commandMatcher(strings.ToLower(strings.TrimPrefix(name, "/")))
}

func (m commandMatcher) Match(ev Event) bool {
	return ev.Kind == KindCommand && ev.Command == string(m)
}

func (m commandMatcher) String() string { return "command:/" + string(m) }

type buttonMatcher string

// OnButton matches a button press with the exact payload.
func OnButton(payload string) Matcher {
	return buttonMatcher(payload)
}

func (m buttonMatcher) Match(ev Event) bool {
	return ev.Kind == KindButton && ev.Payload == string(m)
}

func (m buttonMatcher) String() string { return "button:" + string(m) }

type patternMatcher struct {
	re *regexp.Regexp
}

// OnButtonPattern matches button payloads against a regular expression.
// It panics if expr does not compile.
func OnButtonPattern(expr string) Matcher {
	return patternMatcher{re: regexp.MustCompile(expr)}
}

func (m patternMatcher) Match(ev Event) bool {
	return ev.Kind == KindButton && m.re.MatchString(ev.Payload)
}

func (m patternMatcher) String() string { return "button~" + m.re.String() }

type suffixMatcher string

// OnButtonSuffix matches button payloads that end with marker and are longer than it.
func OnButtonSuffix(marker string) Matcher {
	return suffixMatcher(marker)
}

func (m suffixMatcher) Match(ev Event) bool {
	return ev.Kind == KindButton && len(ev.Payload) > len(m) && strings.HasSuffix(ev.Payload, string(m))
}

func (m suffixMatcher) String() string { return "button*" + string(m) }

type textMatcher struct{}

// OnText matches any free-text message that is not a command.
func OnText() Matcher {
	return textMatcher{}
}

func (textMatcher) Match(ev Event) bool {
	return ev.Kind == KindText
}

func (textMatcher) String() string { return "text" }
