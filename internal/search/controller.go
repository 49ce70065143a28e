package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"ghsearch/internal/alert"
	"ghsearch/internal/apperror"
	"ghsearch/internal/debounce"
	"ghsearch/internal/domain"
	"ghsearch/internal/eventbus"
	"ghsearch/internal/github"
)

// Controller turns raw input into at most one effective search per settled
// query. Only the response belonging to the latest generation may change
// the visible state; older responses are dropped, success or error.
type Controller struct {
	client    Searcher
	alerts    *alert.Channel
	bus       eventbus.EventBus
	logger    *slog.Logger
	debouncer *debounce.Debouncer[string]

	baseCtx    context.Context
	baseCancel context.CancelFunc
	closeWait  time.Duration

	mu             sync.Mutex
	st             state
	generation     uint64
	version        uint64
	cancelInFlight context.CancelFunc
	closed         bool
	subs           []subscriber
	nextSubID      uint64
	inFlight       sync.WaitGroup
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Option configures a Controller
type Option func(*options)

type options struct {
	delay     time.Duration
	logger    *slog.Logger
	ctx       context.Context
	closeWait time.Duration
}

// DefaultCloseWait bounds how long Close waits for a request to return
const DefaultCloseWait = 2 * time.Second

// WithDebounce sets the quiet period before a query settles
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithLogger sets the controller's logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithContext sets the parent context of every request
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithCloseWait bounds how long Close waits for an in-flight request that
// ignores cancellation
func WithCloseWait(d time.Duration) Option {
	return func(o *options) { o.closeWait = d }
}

// NewController wires a controller around client. alerts and bus may be nil.
func NewController(client Searcher, alerts *alert.Channel, bus eventbus.EventBus, opts ...Option) *Controller {
	o := options{
		delay:     debounce.DefaultDelay,
		logger:    slog.Default(),
		ctx:       context.Background(),
		closeWait: DefaultCloseWait,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if alerts == nil {
		alerts = alert.New(alert.DefaultWindow)
	}
	if bus == nil {
		bus = eventbus.NullBus{}
	}

	ctx, cancel := context.WithCancel(o.ctx)
	c := &Controller{
		client:     client,
		alerts:     alerts,
		bus:        bus,
		logger:     o.logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		closeWait:  o.closeWait,
		st: state{
			phase: PhaseIdle,
			users: []domain.UserSummary{},
		},
	}
	c.debouncer = debounce.New(o.delay, c.settle)
	alerts.OnExpire(c.alertExpired)
	return c
}

// OnInputChange reports a raw input change. It never blocks on I/O.
func (c *Controller) OnInputChange(text string) {
	c.debouncer.Observe(text)
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive every published snapshot. fn runs
// outside the controller lock and may call back into the controller, but
// must not call Close.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// DismissAlert hides the current alert on user request
func (c *Controller) DismissAlert() {
	c.alerts.Hide()
	c.publish()
}

// Settled reports whether no input is waiting to settle and no request is
// outstanding
func (c *Controller) Settled() bool {
	if c.debouncer.Pending() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.st.loading
}

// DebounceDelay returns the configured quiet period
func (c *Controller) DebounceDelay() time.Duration {
	return c.debouncer.Delay()
}

// Close stops all timers, cancels the in-flight request and waits up to the
// close wait for its goroutine to return. Completions arriving afterwards
// are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
	c.mu.Unlock()

	c.debouncer.Stop()
	c.alerts.Stop()
	c.baseCancel()

	done := make(chan struct{})
	go func() {
		c.inFlight.Wait()
		close(done)
	}()
	timer := time.NewTimer(c.closeWait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("close: in-flight search did not return", slog.Duration("waited", c.closeWait))
	}
}

// settle handles a new debounced value
func (c *Controller) settle(q string) {
	c.bus.Publish(domain.QuerySettledEvent{Query: q})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	// Any in-flight request is stale from here on
	c.generation++
	gen := c.generation
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}

	if q == "" {
		c.st = state{
			phase: PhaseIdle,
			query: q,
			users: []domain.UserSummary{},
		}
		snap, subs := c.snapshotLocked(), c.subscribersLocked()
		c.mu.Unlock()

		c.logger.Debug("search reset", slog.Uint64("generation", gen))
		c.notify(snap, subs)
		return
	}

	requestID := xid.New().String()
	ctx, cancel := context.WithCancel(c.baseCtx)
	ctx = github.WithRequestID(ctx, requestID)
	c.cancelInFlight = cancel
	c.st.phase = PhasePending
	c.st.query = q
	c.st.loading = true
	c.inFlight.Add(1)
	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	c.logger.Info("search started",
		slog.Uint64("generation", gen),
		slog.String("request_id", requestID),
		slog.String("query", q),
	)
	c.bus.Publish(domain.SearchStartedEvent{Generation: gen, RequestID: requestID, Query: q})
	c.notify(snap, subs)

	go c.run(ctx, cancel, gen, requestID, q)
}

// run performs one request and hands its outcome to complete
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, requestID, q string) {
	defer c.inFlight.Done()
	defer cancel()

	res, err := c.search(ctx, q)
	c.complete(gen, requestID, q, res, err)
}

// search calls the client, converting a panic into a failure for this generation
func (c *Controller) search(ctx context.Context, q string) (res domain.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.SearchResult{}
			err = apperror.Network(fmt.Errorf("search panicked: %v", r))
		}
	}()
	return c.client.Search(ctx, q)
}

// complete applies the outcome if gen is still the latest generation
func (c *Controller) complete(gen uint64, requestID, q string, res domain.SearchResult, err error) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		latest := c.generation
		c.mu.Unlock()

		c.logger.Debug("search discarded",
			slog.Uint64("generation", gen),
			slog.Uint64("latest", latest),
			slog.String("request_id", requestID),
			slog.Bool("failed", err != nil),
			slog.Bool("canceled", github.IsCanceled(err)),
		)
		c.bus.Publish(domain.SearchDiscardedEvent{
			Generation: gen,
			Latest:     latest,
			RequestID:  requestID,
			Query:      q,
			Failed:     err != nil,
		})
		return
	}

	c.cancelInFlight = nil
	c.st.phase = PhaseSettled
	c.st.loading = false

	var event domain.DomainEvent
	if err != nil {
		msg := apperror.Message(err)
		c.st.users = []domain.UserSummary{}
		c.st.totalCount = nil
		c.alerts.Show(msg)
		event = domain.SearchFailedEvent{Generation: gen, RequestID: requestID, Query: q, Message: msg, Err: err}
	} else {
		users := res.Items
		if res.Empty() {
			users = []domain.UserSummary{}
		}
		total := res.TotalCount
		c.st.users = users
		c.st.totalCount = &total
		event = domain.SearchCompletedEvent{
			Generation: gen,
			RequestID:  requestID,
			Query:      q,
			Returned:   len(users),
			TotalCount: total,
		}
	}
	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("search failed",
			slog.Uint64("generation", gen),
			slog.String("request_id", requestID),
			slog.String("kind", kindName(err)),
			slog.String("error", err.Error()),
		)
	} else {
		c.logger.Info("search completed",
			slog.Uint64("generation", gen),
			slog.String("request_id", requestID),
			slog.Int("returned", len(snap.Users)),
			slog.Int("total_count", snap.NumberUsers()),
		)
	}
	c.bus.Publish(event)
	c.notify(snap, subs)
}

// kindName names the failure category of err for logs
func kindName(err error) string {
	if k := apperror.Kind(err); k != nil {
		return k.Error()
	}
	return "unknown"
}

// alertExpired re-publishes state after the alert hid itself
func (c *Controller) alertExpired() {
	c.bus.Publish(domain.AlertExpiredEvent{})
	c.publish()
}

// publish sends the current state to all subscribers
func (c *Controller) publish() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	c.notify(snap, subs)
}

func (c *Controller) notify(snap Snapshot, subs []subscriber) {
	for _, s := range subs {
		s.fn(snap)
	}
}

// snapshotLocked builds a snapshot with the next version. Callers hold c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	c.version++
	users := make([]domain.UserSummary, len(c.st.users))
	copy(users, c.st.users)

	var total *int
	if c.st.totalCount != nil {
		n := *c.st.totalCount
		total = &n
	}

	return Snapshot{
		Version:    c.version,
		Generation: c.generation,
		Phase:      c.st.phase,
		Query:      c.st.query,
		Users:      users,
		TotalCount: total,
		Loading:    c.st.loading,
		Alert:      c.alerts.State(),
	}
}

func (c *Controller) subscribersLocked() []subscriber {
	out := make([]subscriber, len(c.subs))
	copy(out, c.subs)
	return out
}
