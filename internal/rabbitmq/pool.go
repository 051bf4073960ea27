package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Pool owns a bounded set of reusable broker connections and hands them out
// as leases. Broken connections are detected lazily: on the way out of the
// idle set and on release.
type Pool struct {
	url            string
	dial           Dialer
	maxSize        int
	minSize        int
	acquireTimeout time.Duration
	logger         *slog.Logger
	onAcquire      func(wait time.Duration, err error)

	// slots holds one token per live lease and bounds them to maxSize.
	slots chan struct{}
	idle  chan *pooledConn
	// done is closed by Close and wakes every waiting Acquire.
	done chan struct{}

	mu     sync.Mutex
	closed bool
	inUse  int
}

type pooledConn struct {
	id       string
	conn     Connection
	ch       Channel
	lastUsed time.Time
}

func (pc *pooledConn) close() {
	if pc.ch != nil && !pc.ch.IsClosed() {
		pc.ch.Close()
	}
	if !pc.conn.IsClosed() {
		pc.conn.Close()
	}
}

// PoolStats is a point-in-time view of the pool accounting.
type PoolStats struct {
	MaxSize int
	InUse   int
	Idle    int
}

// PoolOption configures the Pool
type PoolOption func(*Pool)

// WithMaxSize sets the maximum number of concurrently leased connections
func WithMaxSize(size int) PoolOption {
	return func(p *Pool) {
		p.maxSize = size
	}
}

// WithMinSize sets the number of connections dialed when the pool is created
func WithMinSize(size int) PoolOption {
	return func(p *Pool) {
		p.minSize = size
	}
}

// WithAcquireTimeout bounds how long Acquire waits for a free slot before
// failing with ErrPoolExhausted. Zero or less fails immediately.
func WithAcquireTimeout(timeout time.Duration) PoolOption {
	return func(p *Pool) {
		p.acquireTimeout = timeout
	}
}

// WithDialer replaces the AMQP dialer
func WithDialer(dial Dialer) PoolOption {
	return func(p *Pool) {
		p.dial = dial
	}
}

// WithPoolLogger sets the logger
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithAcquireObserver registers a callback invoked after every Acquire.
func WithAcquireObserver(fn func(wait time.Duration, err error)) PoolOption {
	return func(p *Pool) {
		p.onAcquire = fn
	}
}

// NewPool creates a pool for the broker at url and dials the minimum number
// of connections up front so an unreachable broker is reported at startup.
func NewPool(ctx context.Context, url string, options ...PoolOption) (*Pool, error) {
	if url == "" {
		return nil, ErrMissingConfiguration
	}

	p := &Pool{
		url:            url,
		dial:           DialAMQP(30 * time.Second),
		maxSize:        10,
		minSize:        1,
		acquireTimeout: 5 * time.Second,
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	if p.maxSize < 1 {
		return nil, fmt.Errorf("%w: max size must be at least 1", ErrInvalidConfiguration)
	}
	if p.minSize < 0 || p.minSize > p.maxSize {
		return nil, fmt.Errorf("%w: min size must be between 0 and max size", ErrInvalidConfiguration)
	}
	if p.dial == nil {
		return nil, fmt.Errorf("%w: dialer is nil", ErrInvalidConfiguration)
	}

	p.slots = make(chan struct{}, p.maxSize)
	p.idle = make(chan *pooledConn, p.maxSize)
	p.done = make(chan struct{})

	p.logger.Info("creating amqp pool",
		"url", SanitizeURL(url),
		"maxSize", p.maxSize,
		"minSize", p.minSize)

	for i := 0; i < p.minSize; i++ {
		pc, err := p.newConn(ctx)
		if err != nil {
			p.Close()
			p.logger.Error("could not create amqp pool", "error", err)
			return nil, err
		}
		p.idle <- pc
	}

	p.logger.Info("amqp pool created")
	return p, nil
}

// Acquire leases a connection. It blocks while all maxSize leases are out,
// for at most the acquire timeout, and fails with ErrPoolExhausted after.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	start := time.Now()
	lease, err := p.acquire(ctx)
	if p.onAcquire != nil {
		p.onAcquire(time.Since(start), err)
	}
	return lease, err
}

func (p *Pool) acquire(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	if err := p.waitSlot(ctx); err != nil {
		return nil, err
	}

	if p.isClosed() {
		<-p.slots
		return nil, ErrPoolClosed
	}

	pc, err := p.takeOrDial(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()

	return &Lease{
		pool:       p,
		pc:         pc,
		acquiredAt: time.Now(),
	}, nil
}

func (p *Pool) waitSlot(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	default:
	}

	if p.acquireTimeout <= 0 {
		return ErrPoolExhausted
	}

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return &ConnectionError{
			Op:        "acquire",
			Err:       ctx.Err(),
			Timestamp: time.Now(),
		}
	case <-timer.C:
		return ErrPoolExhausted
	}
}

func (p *Pool) takeOrDial(ctx context.Context) (*pooledConn, error) {
	for {
		select {
		case pc := <-p.idle:
			if pc.conn.IsClosed() {
				p.logger.Debug("discarding closed amqp connection", "connection", pc.id)
				pc.close()
				continue
			}
			return pc, nil
		default:
			return p.newConn(ctx)
		}
	}
}

func (p *Pool) newConn(ctx context.Context) (*pooledConn, error) {
	conn, err := p.dial(ctx, p.url)
	if err != nil {
		return nil, &ConnectionError{
			Op:        "dial",
			URL:       SanitizeURL(p.url),
			Err:       fmt.Errorf("%w: %w", ErrCouldNotConnect, err),
			Timestamp: time.Now(),
		}
	}

	pc := &pooledConn{
		id:       uuid.NewString(),
		conn:     conn,
		lastUsed: time.Now(),
	}
	p.logger.Debug("dialed amqp connection", "connection", pc.id)
	return pc, nil
}

func (p *Pool) put(pc *pooledConn) {
	defer func() { <-p.slots }()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--

	if p.closed || pc.conn.IsClosed() {
		pc.close()
		return
	}

	pc.lastUsed = time.Now()
	select {
	case p.idle <- pc:
	default:
		pc.close()
	}
}

// Execute runs fn on the channel of a leased connection. The lease is
// returned on every exit path, including a panic inside fn.
func (p *Pool) Execute(ctx context.Context, fn func(Channel) error) (err error) {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	ch, err := lease.Channel()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in channel execution: %v", r)
		}
	}()
	return fn(ch)
}

// Stats returns the current pool accounting
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		MaxSize: p.maxSize,
		InUse:   p.inUse,
		Idle:    len(p.idle),
	}
}

// Close closes every idle connection and fails every Acquire still waiting
// for a slot. Leased connections are closed when their lease is released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	for {
		select {
		case pc := <-p.idle:
			pc.close()
		default:
			p.logger.Info("amqp pool closed")
			return nil
		}
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Lease is an exclusive borrow of one pooled connection. It must be used by
// a single goroutine and released exactly once; extra Release calls are
// ignored.
type Lease struct {
	pool       *Pool
	pc         *pooledConn
	acquiredAt time.Time
	released   atomic.Bool
}

// ID identifies the underlying pooled connection
func (l *Lease) ID() string {
	return l.pc.id
}

// Connection returns the leased connection
func (l *Lease) Connection() Connection {
	return l.pc.conn
}

// Channel returns the confirm-mode channel bound to the leased connection,
// opening a new one when none exists yet or the broker closed the last one.
func (l *Lease) Channel() (Channel, error) {
	if l.released.Load() {
		return nil, ErrLeaseReleased
	}

	pc := l.pc
	if pc.ch != nil && !pc.ch.IsClosed() {
		return pc.ch, nil
	}

	ch, err := pc.conn.Channel()
	if err != nil {
		return nil, &ConnectionError{
			Op:        "create channel",
			Err:       fmt.Errorf("%w: %w", ErrCouldNotCreateChannel, err),
			Timestamp: time.Now(),
		}
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, &ConnectionError{
			Op:        "enable confirms",
			Err:       fmt.Errorf("%w: %w", ErrCouldNotCreateChannel, err),
			Timestamp: time.Now(),
		}
	}

	pc.ch = ch
	return ch, nil
}

// Release returns the connection to the pool
func (l *Lease) Release() {
	if l.released.Swap(true) {
		return
	}
	l.pool.logger.Debug("lease released",
		"connection", l.pc.id,
		"held", time.Since(l.acquiredAt))
	l.pool.put(l.pc)
}
