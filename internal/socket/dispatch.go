package socket

import (
	"context"

	"go.uber.org/zap"
)

// Handler processes messages of one logical type. A handler declares the type
// it is interested in; Match is the fallback used for messages whose type tag
// matched no declared type.
type Handler interface {
	// Type is the message type this handler is registered under. A handler
	// may return an empty string to rely solely on Match.
	Type() string
	// Match reports whether this handler wants a message that no handler
	// claimed by type.
	Match(m Message) bool
	// Handle processes the message. ctx is the owning client's scope.
	Handle(ctx context.Context, c *Client, m Message) error
}

// Dispatcher routes decoded messages to the handlers that should process
// them: first by declared type, then by predicate, finally to a designated
// catch-all.
//
// Handlers are registered once at startup; HandlersFor is read-only and safe
// for concurrent use afterward.
type Dispatcher struct {
	logger   *zap.SugaredLogger
	byType   map[string][]Handler
	handlers []Handler
	fallback Handler
}

func NewDispatcher(logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		byType: make(map[string][]Handler),
	}
}

// Register records a handler under its declared type and in the predicate
// scan order.
func (d *Dispatcher) Register(h Handler) {
	if t := h.Type(); t != "" {
		d.byType[t] = append(d.byType[t], h)
	}
	d.handlers = append(d.handlers, h)
}

// RegisterDefault designates the catch-all handler returned when neither the
// type index nor any predicate claims a message. The designation is an
// explicit role; the default does not participate in predicate matching.
func (d *Dispatcher) RegisterDefault(h Handler) {
	d.fallback = h
}

// HandlersFor resolves the ordered set of handlers for a message.
func (d *Dispatcher) HandlersFor(m Message) []Handler {
	resolved := d.byType[m.Type()]

	if len(resolved) == 0 {
		for _, h := range d.handlers {
			if h.Match(m) {
				resolved = append(resolved, h)
			}
		}
	}

	if len(resolved) == 0 && d.fallback != nil {
		resolved = []Handler{d.fallback}
	}

	d.logger.Debugf("resolved %d handler(s) for %s message: %v", len(resolved), m.Type(), handlerNames(resolved))
	return resolved
}

func handlerNames(handlers []Handler) []string {
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		if t := h.Type(); t != "" {
			names = append(names, t)
		} else {
			names = append(names, "untyped")
		}
	}
	return names
}
