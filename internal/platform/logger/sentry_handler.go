package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// tagKeys are promoted from log attributes to Sentry tags.
var tagKeys = map[string]struct{}{
	"router":   {},
	"prefix":   {},
	"location": {},
	"pattern":  {},
	"handler":  {},
}

// WrapWithSentry returns a logger that forwards error logs to Sentry.
func WrapWithSentry(base *slog.Logger) *slog.Logger {
	if base == nil {
		return base
	}
	return slog.New(&sentryHandler{next: base.Handler(), hub: sentry.CurrentHub()})
}

type sentryHandler struct {
	next  slog.Handler
	hub   *sentry.Hub
	attrs []slog.Attr
	group string
}

func (h *sentryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sentryHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.next.Handle(ctx, record)
	if record.Level < slog.LevelError {
		return err
	}
	hub := h.hub
	if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
		hub = ctxHub
	}
	if hub != nil {
		hub.CaptureEvent(newSentryEvent(record, h.attrs, h.group))
	}
	return err
}

func (h *sentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next = append(next, h.attrs...)
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		next = append(next, attr)
	}
	return &sentryHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: next, group: h.group}
}

func (h *sentryHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &sentryHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs, group: group}
}

func newSentryEvent(record slog.Record, inherited []slog.Attr, group string) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = record.Message
	event.Timestamp = record.Time
	if event.Tags == nil {
		event.Tags = map[string]string{}
	}
	if event.Extra == nil {
		event.Extra = map[string]any{}
	}

	var capturedErr error
	add := func(attr slog.Attr) {
		if attr.Key == "" {
			return
		}
		value := attrValue(attr.Value, &capturedErr)
		if _, ok := tagKeys[attr.Key]; ok {
			event.Tags[attr.Key] = fmt.Sprint(value)
			return
		}
		event.Extra[attr.Key] = value
	}
	for _, attr := range inherited {
		add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		if group != "" {
			attr.Key = group + "." + attr.Key
		}
		add(attr)
		return true
	})

	if record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.PC != 0 {
			event.Extra["source.file"] = frame.File
			event.Extra["source.line"] = frame.Line
			event.Extra["source.function"] = frame.Function
		}
	}
	if capturedErr != nil {
		event.Exception = []sentry.Exception{{
			Type:  fmt.Sprintf("%T", capturedErr),
			Value: capturedErr.Error(),
		}}
	}
	return event
}

func attrValue(value slog.Value, capturedErr *error) any {
	switch value.Kind() {
	case slog.KindAny:
		anyValue := value.Any()
		if err, ok := anyValue.(error); ok {
			if *capturedErr == nil {
				*capturedErr = err
			}
			return err.Error()
		}
		return anyValue
	case slog.KindBool:
		return value.Bool()
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindFloat64:
		return value.Float64()
	case slog.KindInt64:
		return value.Int64()
	case slog.KindString:
		return value.String()
	case slog.KindTime:
		return value.Time()
	case slog.KindUint64:
		return value.Uint64()
	case slog.KindGroup:
		group := map[string]any{}
		for _, attr := range value.Group() {
			if attr.Key == "" {
				continue
			}
			group[attr.Key] = attrValue(attr.Value, capturedErr)
		}
		return group
	case slog.KindLogValuer:
		return attrValue(value.Resolve(), capturedErr)
	default:
		return value.String()
	}
}
