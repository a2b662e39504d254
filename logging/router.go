package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans events out to its sinks synchronously. Events below the
// configured severity are dropped; sink failures fall back to the standard
// logger rather than propagating.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	fields   map[string]any

	mu     sync.Mutex
	sinks  []NamedSink
	closed bool
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	sinks := make([]NamedSink, 0, len(namedSinks))
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		sinks = append(sinks, named)
	}
	return &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: log.New(os.Stderr, "logging: ", log.LstdFlags),
		fields:   cfg.CloneFields(),
		sinks:    sinks,
	}, nil
}

func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil {
		return
	}
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, named := range r.sinks {
		if err := named.Sink.Write(event); err != nil {
			r.fallback.Printf("sink %s: %v", named.Name, err)
		}
	}
}

func (r *Router) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
