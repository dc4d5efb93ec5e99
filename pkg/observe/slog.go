package observe

import (
	"context"
	"log/slog"
)

// Slog writes events to a structured logger. Updates and subscription
// changes are logged at Debug, rejected partials at Warn.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a Slog observer. A nil logger uses slog.Default().
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger.With("component", "store")}
}

func (s *Slog) OnEvent(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("store", event.Store),
		slog.Uint64("version", event.Version),
		slog.Int("subscribers", event.Subscribers),
	}

	switch event.Type {
	case EventUpdate:
		attrs = append(attrs,
			slog.Int("notified", event.Notified),
			slog.Bool("replaced", event.Replaced),
			slog.Duration("duration", event.Duration),
		)
	case EventRejected:
		level = slog.LevelWarn
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
	}

	s.logger.LogAttrs(context.Background(), level, string(event.Type), attrs...)
}
