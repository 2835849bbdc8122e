// Package debug gates verbose diagnostics behind two independent knobs:
// categories select WHAT gets logged (MOLMUTE_DEBUG), the level selects
// HOW MUCH (MOLMUTE_LOG_LEVEL).
//
//	debug.Log("providers", "request", "method", "POST", "url", url)
//	if debug.Enabled("providers") { /* expensive formatting */ }
//
// Known categories: providers, validator, engine, auth, transport,
// storage, config, all. Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug. At TRACE, full untruncated
// request and response bodies are emitted.
const LevelTrace = slog.LevelDebug - 4

// categories is written once during Init and read-only afterwards.
var categories map[string]struct{}

func init() {
	categories = parseCategories(os.Getenv("MOLMUTE_DEBUG"))
}

// Init applies config-file debug settings, with the environment taking
// precedence, and installs the default slog handler at the chosen level.
func Init(configCategories, configLevel string) {
	cats := os.Getenv("MOLMUTE_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("MOLMUTE_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether a category is active.
func Enabled(category string) bool {
	if _, ok := categories["all"]; ok {
		return true
	}
	_, ok := categories[category]
	return ok
}

// Log emits a debug-level message when the category is enabled.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message when the category is enabled.
func Trace(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether trace output would be emitted for
// the category under the current handler.
func TraceIsEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(nil, LevelTrace)
}

// Raw writes text straight to stderr, bypassing slog formatting, so
// payloads stay copy-paste-ready. Active only at TRACE.
func Raw(category, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate caps s at maxLen characters, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			set[cat] = struct{}{}
		}
	}
	return set
}
