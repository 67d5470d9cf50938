package llm

import (
	"context"
	"time"
)

// Observer receives a notification after every provider call, whether it
// succeeded or failed. Implementations should not block.
type Observer interface {
	OnCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one provider call.
type CallEvent struct {
	Provider  string
	Model     string
	Request   Request
	Response  *Response // nil if the call failed
	Error     error
	Duration  time.Duration
	StartedAt time.Time
}

// ObserverFunc is a convenience type for using a function as an Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnCall implements Observer.
func (f ObserverFunc) OnCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// MultiObserver dispatches every event to each of its observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates an observer that dispatches to multiple observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

// OnCall dispatches the event to all registered observers.
func (m *MultiObserver) OnCall(ctx context.Context, event CallEvent) {
	for _, obs := range m.observers {
		obs.OnCall(ctx, event)
	}
}

// Add adds an observer to the multi-observer.
func (m *MultiObserver) Add(obs Observer) {
	m.observers = append(m.observers, obs)
}

// ObservedProvider reports every call of the wrapped provider to an Observer.
type ObservedProvider struct {
	inner    Provider
	observer Observer
}

// WithObserver wraps p so that obs sees each call. A nil observer returns p unchanged.
func WithObserver(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &ObservedProvider{inner: p, observer: obs}
}

// Execute calls the wrapped provider and reports the outcome.
func (o *ObservedProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.inner.Execute(ctx, req)

	event := CallEvent{
		Provider:  o.inner.Name(),
		Model:     o.inner.Model(),
		Request:   req,
		Response:  resp,
		Error:     err,
		Duration:  time.Since(start),
		StartedAt: start,
	}
	if resp != nil && resp.Model != "" {
		event.Model = resp.Model
	}
	o.observer.OnCall(ctx, event)

	return resp, err
}

// Name returns the wrapped provider's name.
func (o *ObservedProvider) Name() string { return o.inner.Name() }

// Model returns the wrapped provider's model.
func (o *ObservedProvider) Model() string { return o.inner.Model() }
