package telegram

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/telegram/middleware"
	tgsender "github.com/m3rciful/officebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	edited  []string
	nextID  int
	sendErr error
	editErr error
}

func (f *fakeMessenger) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, to.Recipient()+":"+what.(string))
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeMessenger) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	id, _ := msg.MessageSig()
	f.edited = append(f.edited, id+":"+what.(string))
	return &tele.Message{}, nil
}

func TestOutboxSendThroughDispatcher(t *testing.T) {
	api := &fakeMessenger{}
	d := tgsender.NewDispatcher(tgsender.Options{Workers: 1})
	defer d.Close()
	out := NewOutbox(api, d)

	ctx, counters := middleware.WithCounters(context.Background())
	kb := dialog.Keyboard{dialog.Row(dialog.Button{Text: "Done", Payload: "done"})}
	id, err := out.Send(ctx, 42, "hello", kb)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != 1 || len(api.sent) != 1 || api.sent[0] != "42:hello" {
		t.Fatalf("id=%d sent=%v", id, api.sent)
	}
	if n, hasKB := counters.Snapshot(); n != 1 || !hasKB {
		t.Fatalf("counters = %d %v", n, hasKB)
	}
}

func TestOutboxEditIgnoresNotModified(t *testing.T) {
	api := &fakeMessenger{editErr: errors.New("telegram: Bad Request: message is not modified (400)")}
	out := NewOutbox(api, nil)
	if err := out.Edit(context.Background(), 1, 10, "same", nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(api.sent) != 0 {
		t.Fatalf("unexpected fallback send: %v", api.sent)
	}
}

func TestOutboxEditFallsBackToSend(t *testing.T) {
	api := &fakeMessenger{editErr: errors.New("telegram: Bad Request: message to edit not found (400)")}
	out := NewOutbox(api, nil)
	if err := out.Edit(context.Background(), 7, 10, "menu", nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(api.sent) != 1 || api.sent[0] != "7:menu" {
		t.Fatalf("fallback sends = %v", api.sent)
	}

	api.editErr = nil
	if err := out.Edit(context.Background(), 7, 0, "fresh", nil); err != nil {
		t.Fatalf("edit without id: %v", err)
	}
	if len(api.sent) != 2 || len(api.edited) != 0 {
		t.Fatalf("sent=%v edited=%v", api.sent, api.edited)
	}
	if err := out.Edit(context.Background(), 7, 11, "edited", nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(api.edited) != 1 || api.edited[0] != "11:edited" {
		t.Fatalf("edited = %v", api.edited)
	}
}

// lateMessenger delivers every message but reports a timeout for the first
// call, as when the response is lost after Telegram accepted the request.
type lateMessenger struct {
	fakeMessenger
	calls int
}

func (l *lateMessenger) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	msg, err := l.fakeMessenger.Send(to, what, opts...)
	l.mu.Lock()
	l.calls++
	first := l.calls == 1
	l.mu.Unlock()
	if first {
		return nil, &net.OpError{Op: "read", Net: "tcp", Err: timeoutError{}}
	}
	return msg, err
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestOutboxDoesNotRepeatTimedOutSend(t *testing.T) {
	api := &lateMessenger{}
	d := tgsender.NewDispatcher(tgsender.Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	defer d.Close()

	if _, err := NewOutbox(api, d).Send(context.Background(), 501, "Meeting at 5pm", nil); err == nil {
		t.Fatal("expected the timeout to be reported")
	}
	if len(api.sent) != 1 || api.sent[0] != "501:Meeting at 5pm" {
		t.Fatalf("deliveries = %q, want exactly one", api.sent)
	}
}

func TestOutboxSendError(t *testing.T) {
	boom := errors.New("Forbidden: bot was blocked by the user")
	api := &fakeMessenger{sendErr: boom}
	d := tgsender.NewDispatcher(tgsender.Options{Workers: 1, MaxDuration: time.Second})
	defer d.Close()
	if _, err := NewOutbox(api, d).Send(context.Background(), 5, "x", nil); !errors.Is(err, boom) {
		t.Fatalf("send err = %v", err)
	}
}
