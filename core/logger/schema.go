package logger

import (
	"log/slog"
	"strings"
)

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

func levelName(l slog.Level) string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return strings.ToUpper(l.String())
}

// normalizeStatus lowercases status and folds "error" into "fail".
func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "error" {
		return "fail"
	}
	return status
}

// defaultKeyOrder fixes the leading columns of every line. Keys not listed
// follow in lexical order.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"kind",
	"conv",
	"route",
	"state_from",
	"state",
	"depth_before",
	"depth",
	"group",
	"members",
	"sent",
	"failed",
	"backend",
	"path",
	"duration_ms",
	"messages",
	"kb",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"version",
	"err",
	"err_kind",
	"attempts",
}
