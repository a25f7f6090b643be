package ui

import (
	"context"
	"log/slog"
)

// TeeEvents logs every event from in at Debug level under the message
// "ferry.event" and forwards it to the returned channel, which closes when
// in closes.
func TeeEvents(in <-chan Event, logger *slog.Logger) <-chan Event {
	out := make(chan Event, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
			}
			if ev.Phase != "" {
				attrs = append(attrs, slog.String("phase", string(ev.Phase)))
			}
			if ev.Path != "" {
				attrs = append(attrs, slog.String("path", ev.Path))
			}
			if ev.Total > 0 {
				attrs = append(attrs, slog.Int("index", ev.Index), slog.Int("total", ev.Total))
			}
			if ev.Attempts > 0 {
				attrs = append(attrs, slog.Int("attempts", ev.Attempts))
			}
			if ev.Size > 0 {
				attrs = append(attrs, slog.Int64("size", ev.Size))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			logger.LogAttrs(context.Background(), slog.LevelDebug, "ferry.event", attrs...)
			out <- ev
		}
	}()
	return out
}
