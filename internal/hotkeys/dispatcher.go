package hotkeys

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"beatbind/internal/workerutil"
)

// TriggerEvent is emitted once per engagement, after the action has been
// scheduled.
type TriggerEvent struct {
	Hotkey Definition
	At     time.Time
}

type observer struct {
	id int
	fn func(TriggerEvent)
}

// Dispatcher runs hotkey actions on their own goroutines so the key hook
// never waits on them.
type Dispatcher struct {
	now func() time.Time

	wg       sync.WaitGroup
	inFlight atomic.Int64

	observerMu     sync.Mutex
	nextObserverID int
	observers      atomic.Pointer[[]observer]

	// pending is drained in dispatch order by at most one goroutine.
	notifyMu  sync.Mutex
	pending   []TriggerEvent
	notifying bool
}

// NewDispatcher creates a dispatcher. now defaults to time.Now.
func NewDispatcher(now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	d := &Dispatcher{now: now}
	d.observers.Store(&[]observer{})
	return d
}

// Subscribe registers fn for every TriggerEvent. Observers run on a
// notification goroutine, in dispatch order and apart from the actions: a
// slow observer delays later notifications, never an action. A panicking
// observer is logged and skipped.
// The returned function removes the subscription.
func (d *Dispatcher) Subscribe(fn func(TriggerEvent)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	d.observerMu.Lock()
	d.nextObserverID++
	id := d.nextObserverID
	current := *d.observers.Load()
	next := make([]observer, len(current), len(current)+1)
	copy(next, current)
	next = append(next, observer{id: id, fn: fn})
	d.observers.Store(&next)
	d.observerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.removeObserver(id) })
	}
}

func (d *Dispatcher) removeObserver(id int) {
	d.observerMu.Lock()
	defer d.observerMu.Unlock()
	current := *d.observers.Load()
	next := make([]observer, 0, len(current))
	for _, o := range current {
		if o.id != id {
			next = append(next, o)
		}
	}
	d.observers.Store(&next)
}

// Dispatch schedules def's action, queues its TriggerEvent and returns
// immediately.
func (d *Dispatcher) Dispatch(def Definition) {
	ev := TriggerEvent{Hotkey: def, At: d.now()}
	d.inFlight.Add(1)
	d.wg.Go(func() {
		defer d.inFlight.Add(-1)
		d.run(def)
	})
	d.enqueue(ev)
}

func (d *Dispatcher) enqueue(ev TriggerEvent) {
	d.notifyMu.Lock()
	d.pending = append(d.pending, ev)
	if d.notifying {
		d.notifyMu.Unlock()
		return
	}
	d.notifying = true
	d.notifyMu.Unlock()
	d.wg.Go(d.drainNotifications)
}

func (d *Dispatcher) drainNotifications() {
	for {
		d.notifyMu.Lock()
		if len(d.pending) == 0 {
			d.notifying = false
			d.pending = nil
			d.notifyMu.Unlock()
			return
		}
		ev := d.pending[0]
		d.pending[0] = TriggerEvent{}
		d.pending = d.pending[1:]
		d.notifyMu.Unlock()
		d.notify(ev)
	}
}

// InFlight returns the number of actions that have not finished.
func (d *Dispatcher) InFlight() int64 { return d.inFlight.Load() }

// Wait blocks until every dispatched action and queued notification has
// been handled or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) notify(ev TriggerEvent) {
	for _, o := range *d.observers.Load() {
		err := workerutil.Call(func() error {
			o.fn(ev)
			return nil
		})
		if err != nil {
			slog.Warn("[WARN-HOTKEY] trigger observer panicked",
				"hotkeyID", ev.Hotkey.ID,
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) run(def Definition) {
	start := time.Now()
	err := workerutil.Call(def.Action)
	if err == nil {
		slog.Debug("[DEBUG-HOTKEY] hotkey action completed",
			"hotkeyID", def.ID,
			"action", def.Name,
			"elapsed", time.Since(start),
		)
		return
	}

	execErr := &ActionExecutionError{HotkeyID: def.ID, Name: def.Name, Err: err}
	var pe *workerutil.PanicError
	if errors.As(err, &pe) {
		slog.Error("[WARN-HOTKEY] hotkey action panicked",
			"hotkeyID", def.ID,
			"action", def.Name,
			"panic", pe.Value,
			"stack", string(pe.Stack),
		)
		return
	}
	slog.Warn("[WARN-HOTKEY] hotkey action failed",
		"hotkeyID", def.ID,
		"action", def.Name,
		"error", execErr,
	)
}
