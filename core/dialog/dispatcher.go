package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/state"
)

const component = logger.CompDialog

// Options configure a Dispatcher.
type Options struct {
	Store    state.Store
	Registry *Registry
	Outbox   Outbox

	// SessionTTL resets an active session that saw no events for this long. Zero disables it.
	SessionTTL time.Duration
	// OnUnmatched runs when no route accepts an event. Nil drops the event silently.
	OnUnmatched func(ctx context.Context, r *Request) error
	// OnExpired replaces OnUnmatched for the first event after SessionTTL
	// reset an active session, unless that event starts a conversation.
	OnExpired func(ctx context.Context, r *Request) error
	// OnError runs after a failed handler with the session as it was before
	// the event. Changes it makes to r.Data are not stored.
	OnError func(ctx context.Context, r *Request, err error) error

	Now func() time.Time
}

// Outcome describes what Dispatch did.
type Outcome struct {
	Matched      bool
	Expired      bool
	Conversation ID
	Route        string
	From         State
	Next         State
	DepthBefore  int
	DepthAfter   int
}

// Dispatcher routes events through the nested conversations of each user.
type Dispatcher struct {
	store       state.Store
	reg         *Registry
	out         Outbox
	ttl         time.Duration
	onUnmatched func(ctx context.Context, r *Request) error
	onExpired   func(ctx context.Context, r *Request) error
	onError     func(ctx context.Context, r *Request, err error) error
	now         func() time.Time
}

// NewDispatcher wires a dispatcher. Store and Registry are required.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, errors.New("dialog: nil session store")
	}
	if opts.Registry == nil {
		return nil, errors.New("dialog: nil registry")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:       opts.Store,
		reg:         opts.Registry,
		out:         opts.Outbox,
		ttl:         opts.SessionTTL,
		onUnmatched: opts.OnUnmatched,
		onExpired:   opts.OnExpired,
		onError:     opts.OnError,
		now:         now,
	}, nil
}

// Dispatch handles one event for its user. Events of the same user are
// processed one at a time; the user's lock is held until the handler and all
// its outbound effects have returned and the session is stored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	unlock := d.store.Lock(ev.UserID)
	defer unlock()

	sess := d.store.Get(ev.UserID)
	if sess.Data == nil {
		sess.Data = make(map[string]any)
	}
	out := Outcome{DepthBefore: sess.Depth()}

	now := d.now()
	if d.ttl > 0 && !sess.Idle() && !sess.Touched.IsZero() && now.Sub(sess.Touched) > d.ttl {
		logger.Info(ctx, component, "session.expired",
			slog.Int64("user_id", ev.UserID),
			slog.Int("depth", sess.Depth()),
			slog.Duration("idle", now.Sub(sess.Touched)),
		)
		sess.Reset()
		out.Expired = true
	}
	sess.Touched = now

	idx, conv, m, ok := d.find(sess, ev)
	if !ok {
		d.store.Put(ev.UserID, sess)
		out.DepthAfter = sess.Depth()
		logger.Debug(ctx, component, "dialog.unmatched",
			slog.String("kind", ev.Kind.String()),
			slog.Int("depth", sess.Depth()),
		)
		hook := d.onUnmatched
		if out.Expired && d.onExpired != nil {
			hook = d.onExpired
		}
		if hook == nil {
			return out, nil
		}
		return out, hook(ctx, d.request(sess, ev))
	}

	work := sess.Clone()
	work.Stack = work.Stack[:idx+1]

	req := &Request{
		Event:        ev,
		Data:         Data(work.Data),
		Out:          d.out,
		Conversation: conv,
	}
	if idx >= 0 {
		req.State = State(work.Stack[idx].State)
	}
	if m.Enter != nil {
		req.Conversation = m.Enter.ID
		req.State = NotEntered
	}
	out.Matched = true
	out.Conversation = req.Conversation
	out.Route = m.Route.Name
	out.From = req.State

	start := time.Now()
	next, err := m.Route.Handle(ctx, req)
	if err == nil && !m.Route.allows(next) {
		err = fmt.Errorf("%w %q from route %q", ErrUndeclaredState, next, m.Route.Name)
	}
	if err == nil {
		// Entry points push a new frame for the conversation they belong to.
		if idx < 0 || m.Enter != nil {
			work.Stack = append(work.Stack, state.Frame{Conversation: string(req.Conversation)})
			idx++
		}
		work.Stack, err = d.settle(work.Stack, idx, next)
	}
	if err != nil {
		d.store.Put(ev.UserID, sess)
		out.DepthAfter = sess.Depth()
		logger.Warn(ctx, component, "dialog.transition",
			slog.String("status", "fail"),
			slog.String("conv", string(req.Conversation)),
			slog.String("route", m.Route.Name),
			slog.String("state", string(req.State)),
			slog.String("err", err.Error()),
		)
		err = fmt.Errorf("dialog: %s/%s: %w", req.Conversation, m.Route.Name, err)
		if d.onError != nil {
			if herr := d.onError(ctx, d.request(sess.Clone(), ev), err); herr != nil {
				logger.Warn(ctx, component, "dialog.error_reply",
					slog.String("status", "fail"),
					slog.String("err", herr.Error()),
				)
			}
		}
		return out, err
	}

	if len(work.Stack) == 0 {
		work.Reset()
	}
	d.store.Put(ev.UserID, work)
	out.Next = next
	out.DepthAfter = work.Depth()

	logger.Debug(ctx, component, "dialog.transition",
		slog.String("status", "ok"),
		slog.String("conv", string(req.Conversation)),
		slog.String("route", m.Route.Name),
		slog.String("state_from", string(req.State)),
		slog.String("state", string(next)),
		slog.Int("depth_before", out.DepthBefore),
		slog.Int("depth", out.DepthAfter),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return out, nil
}

// request describes ev against the innermost frame of sess.
func (d *Dispatcher) request(sess *state.Session, ev Event) *Request {
	req := &Request{Event: ev, Data: Data(sess.Data), Out: d.out}
	if top, ok := sess.Top(); ok {
		req.Conversation, req.State = ID(top.Conversation), State(top.State)
	}
	return req
}

// find locates the frame that handles ev. For an idle session idx is -1 and
// conv is the top-level conversation whose entry point matched.
func (d *Dispatcher) find(sess *state.Session, ev Event) (int, ID, Match, bool) {
	if sess.Idle() {
		for _, id := range d.reg.TopLevel() {
			if m, ok := d.reg.Match(id, NotEntered, ev); ok {
				return -1, id, m, true
			}
		}
		return 0, "", Match{}, false
	}
	for i := len(sess.Stack) - 1; i >= 0; i-- {
		f := sess.Stack[i]
		if m, ok := d.reg.Match(ID(f.Conversation), State(f.State), ev); ok {
			return i, ID(f.Conversation), m, true
		}
	}
	return 0, "", Match{}, false
}

// settle applies next to the frame at idx and returns the resulting stack.
func (d *Dispatcher) settle(stack []state.Frame, idx int, next State) ([]state.Frame, error) {
	if next == Stop {
		return nil, nil
	}
	def, ok := d.reg.Resolve(ID(stack[idx].Conversation))
	if !ok {
		return stack, fmt.Errorf("dialog: unknown conversation %q on stack", stack[idx].Conversation)
	}
	if idx > 0 {
		if mapped, ok := def.MapToParent[next]; ok {
			return d.settle(stack[:idx], idx-1, mapped)
		}
		if next == End {
			return stack[:idx], nil
		}
	} else if next == End {
		return nil, nil
	}
	if _, ok := def.States[next]; ok {
		stack[idx].State = string(next)
		return stack[:idx+1], nil
	}
	return stack, fmt.Errorf("%w %q in %s", ErrUndeclaredState, next, def.ID)
}
