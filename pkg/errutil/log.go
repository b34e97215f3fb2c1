// Package errutil holds helpers for errors built with samber/oops.
package errutil

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/samber/oops"
)

// Code returns the oops code of err, or "" when it has none
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}

// Context returns the oops context of err, or nil when it has none
func Context(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

// Attrs describes err for a log record: the message, the oops code when
// set, and the oops context as a group with sorted keys
func Attrs(err error) []slog.Attr {
	attrs := []slog.Attr{slog.String("error", err.Error())}
	if code := Code(err); code != "" {
		attrs = append(attrs, slog.String("code", code))
	}
	ctx := Context(err)
	if len(ctx) == 0 {
		return attrs
	}
	group := make([]slog.Attr, 0, len(ctx))
	for _, k := range slices.Sorted(maps.Keys(ctx)) {
		group = append(group, slog.Any(k, ctx[k]))
	}
	return append(attrs, slog.Attr{Key: "context", Value: slog.GroupValue(group...)})
}

// LogError logs err at error level
func LogError(logger *slog.Logger, msg string, err error) {
	logger.LogAttrs(context.Background(), slog.LevelError, msg, Attrs(err)...)
}
