package conlog

import (
	"context"
	"log/slog"
)

// SearchPosition is a point in a backward search.
type SearchPosition interface {
	Node() Node
	// Last returns the node just departed. ok is false for the
	// starting state.
	Last() (node Node, ok bool)
	Values() Values
	Depth() int
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

// LoggingTracer logs every dequeued search position at debug level.
type LoggingTracer struct {
	Logger *slog.Logger
}

func (t LoggingTracer) Trace(p SearchPosition) {
	if !t.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	last := ""
	if n, ok := p.Last(); ok {
		last = n.Name
	}
	t.Logger.Debug("dequeued state",
		"node", p.Node().Name,
		"last", last,
		"depth", p.Depth(),
		"values", p.Values(),
	)
}
