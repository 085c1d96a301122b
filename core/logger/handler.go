package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as single JSON or key=value lines with a stable key order.
type structuredHandler struct {
	cfg    handlerConfig
	base   fields
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg, base: fields{}}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	jsonOut := h.cfg.format == formatJSON

	f := make(fields, len(h.base)+12)
	for k, v := range h.base {
		f[k] = v
	}
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = levelName(r.Level)
	if jsonOut {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	f.fillFromContext(ctx)
	f.compactRID(jsonOut)
	f.setDefault("event", r.Message, "unknown")
	f.setDefault("component", "app")
	if s, ok := f.str("status"); ok {
		f["status"] = normalizeStatus(s)
	}
	f.dropEmpty()

	var (
		line []byte
		err  error
	)
	if jsonOut {
		line, err = f.encodeJSON(h.cfg.keyOrder)
		if err != nil {
			return err
		}
	} else {
		line = f.encodeKV(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.base = make(fields, len(h.base)+len(attrs))
	for k, v := range h.base {
		next.base[k] = v
	}
	for _, a := range attrs {
		next.base.add(h.prefix, a)
	}
	return &next
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

// fields is the flattened set of values of one log line.
type fields map[string]any

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// add flattens groups into dotted keys and normalizes the value.
func (f fields) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindString:
		f[key] = strings.TrimSpace(v.String())
	case slog.KindBool:
		f[key] = v.Bool()
	case slog.KindInt64:
		f[key] = v.Int64()
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			f[key] = int64(u)
		} else {
			f[key] = u
		}
	case slog.KindFloat64:
		f[key] = v.Float64()
	case slog.KindDuration:
		f.addDuration(key, v.Duration())
	case slog.KindTime:
		f[key] = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			f[key] = x.Error()
		case string:
			f[key] = strings.TrimSpace(x)
		case time.Duration:
			f.addDuration(key, x)
		case fmt.Stringer:
			f[key] = x.String()
		default:
			f[key] = fmt.Sprint(x)
		}
	}
}

// addDuration stores d in milliseconds under a key ending in _ms.
func (f fields) addDuration(key string, d time.Duration) {
	if !strings.HasSuffix(key, "_ms") {
		key += "_ms"
	}
	f[key] = RoundMS(d).Milliseconds()
}

func (f fields) str(key string) (string, bool) {
	switch v := f[key].(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

// setDefault assigns the first non-empty candidate when key is missing or empty.
func (f fields) setDefault(key string, candidates ...string) {
	if s, ok := f.str(key); ok && s != "" {
		return
	}
	for _, c := range candidates {
		if c != "" {
			f[key] = c
			return
		}
	}
}

func (f fields) fillFromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	put := func(key string, v any, empty bool) {
		if empty {
			return
		}
		if _, exists := f[key]; !exists {
			f[key] = v
		}
	}
	rid := RIDFrom(ctx)
	put("rid", rid, rid == "")
	uid := UserIDFrom(ctx)
	put("user_id", uid, uid == 0)
	cid := ChatIDFrom(ctx)
	put("chat_id", cid, cid == 0)
	upd := UpdateIDFrom(ctx)
	put("update_id", upd, upd == 0)
	handler := HandlerFrom(ctx)
	put("handler", handler, handler == "")
}

// compactRID shortens a numeric rid; JSON output also keeps the original.
func (f fields) compactRID(keepFull bool) {
	rid, ok := f.str("rid")
	if !ok || rid == "" {
		return
	}
	compact := CompactRID(rid)
	if compact == "" || compact == rid {
		return
	}
	if keepFull {
		if _, seen := f["rid_full"]; !seen {
			f["rid_full"] = rid
		}
	}
	f["rid"] = compact
}

func (f fields) dropEmpty() {
	for k, v := range f {
		switch x := v.(type) {
		case nil:
			delete(f, k)
		case string:
			if x == "" {
				delete(f, k)
			}
		}
	}
}

// keys lists the ordered keys first, then the rest sorted.
func (f fields) keys(order []string) []string {
	out := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(out))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (f fields) encodeJSON(order []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range f.keys(order) {
		raw, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(raw)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (f fields) encodeKV(order []string) []byte {
	var b strings.Builder
	for i, k := range f.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(f[k]))
	}
	return []byte(b.String())
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}
