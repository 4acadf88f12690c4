package events

import (
	"sync"

	"github.com/jonesrussell/siteatlas/internal/logger"
)

// Bus fans notifications out to every subscribed observer. Dispatch takes a
// snapshot of the subscriber list so sinks can subscribe concurrently with
// a running crawl.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
	logger    logger.Interface
}

// NewBus creates an empty observer bus.
func NewBus(log logger.Interface) *Bus {
	return &Bus{logger: log.WithComponent("events")}
}

// Subscribe adds an observer to the bus.
func (b *Bus) Subscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observer)
}

// ObserverCount returns the number of subscribed observers.
func (b *Bus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// snapshot copies the subscriber list under read lock.
func (b *Bus) snapshot() []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	return observers
}

// dispatch invokes fn on one observer, isolating panics.
func (b *Bus) dispatch(fn func(Observer)) {
	for _, observer := range b.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Observer panicked", "panic", r)
				}
			}()
			fn(observer)
		}()
	}
}

// OnProgress fans out a progress notification.
func (b *Bus) OnProgress(jobID string, processed, total int, currentURL string) {
	b.dispatch(func(o Observer) { o.OnProgress(jobID, processed, total, currentURL) })
}

// OnPageCompleted fans out a page-completed notification.
func (b *Bus) OnPageCompleted(jobID, url, title string) {
	b.dispatch(func(o Observer) { o.OnPageCompleted(jobID, url, title) })
}

// OnExternalLink fans out an external-link notification.
func (b *Bus) OnExternalLink(jobID, from, to string) {
	b.dispatch(func(o Observer) { o.OnExternalLink(jobID, from, to) })
}

// OnError fans out an error notification.
func (b *Bus) OnError(jobID, context, message string) {
	b.dispatch(func(o Observer) { o.OnError(jobID, context, message) })
}
