package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys shared by every package.
const (
	KeyOwner    = "owner"
	KeySession  = "session_id"
	KeyTaskID   = "task_id"
	KeyDuration = "duration"
	KeyError    = "error"
	KeyTool     = "tool"
)

// Output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New builds a logger writing to w. Format is json unless "text" is given;
// level is parsed with ParseLevel.
func New(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, FormatText) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps debug, info, warn(ing) and error to a slog.Level. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Owner logs the owner id hashed with HashID.
func Owner(owner string) slog.Attr {
	return slog.String(KeyOwner, HashID(owner))
}

func Session(sessionID string) slog.Attr {
	return slog.String(KeySession, sessionID)
}

func TaskID(id string) slog.Attr {
	return slog.String(KeyTaskID, id)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns the error attribute. A nil err yields an empty group, which
// handlers omit.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// HashID returns "user:" and the first 8 bytes of the SHA-256 of id in hex,
// so log lines for one user correlate without carrying the id. Empty input
// stays empty.
func HashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return "user:" + hex.EncodeToString(sum[:8])
}
