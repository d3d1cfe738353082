/*
sessions.go - Open carts and the idle cart sweeper

PURPOSE:
  Carts live in memory for as long as a till session is open. Each cart is
  owned by exactly one session and guarded by its own mutex, so two
  requests against the same cart id are serialized.

SWEEPER:
  - Runs a background goroutine with a configurable check interval
  - Drops carts that have not been touched for TTL
  - Dropping a cart never touches stock or balances; nothing is reserved
    until checkout

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 minute)
  - TTL: Idle time before a cart is dropped (default: 30 minutes)

USAGE:
  sweeper := NewCartSweeper(sessions, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: Cart endpoints
  - checkout/cart.go: Cart
*/
package api

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
)

// =============================================================================
// CART SESSIONS
// =============================================================================

type cartSession struct {
	mu      sync.Mutex
	cart    *checkout.Cart
	touched time.Time
}

// CartSessions is the registry of open carts.
type CartSessions struct {
	mu    sync.Mutex
	carts map[string]*cartSession
	now   func() time.Time
}

func NewCartSessions() *CartSessions {
	return &CartSessions{
		carts: make(map[string]*cartSession),
		now:   time.Now,
	}
}

// Create opens a new empty cart and returns its id.
func (cs *CartSessions) Create() string {
	cart := checkout.NewCart()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.carts[cart.ID] = &cartSession{cart: cart, touched: cs.now()}
	return cart.ID
}

// With runs fn with exclusive access to the cart.
func (cs *CartSessions) With(id string, fn func(*checkout.Cart) error) error {
	cs.mu.Lock()
	s, ok := cs.carts[id]
	cs.mu.Unlock()
	if !ok {
		return &commerce.NotFoundError{Kind: "cart", ID: id}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = cs.now()
	return fn(s.cart)
}

// Delete closes a cart. It reports whether the cart existed.
func (cs *CartSessions) Delete(id string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.carts[id]; !ok {
		return false
	}
	delete(cs.carts, id)
	return true
}

func (cs *CartSessions) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.carts)
}

// Sweep drops carts idle for longer than ttl and returns how many went.
func (cs *CartSessions) Sweep(ttl time.Duration) int {
	cutoff := cs.now().Add(-ttl)

	cs.mu.Lock()
	defer cs.mu.Unlock()

	dropped := 0
	for id, s := range cs.carts {
		if !s.mu.TryLock() {
			continue // in use
		}
		if s.touched.Before(cutoff) {
			delete(cs.carts, id)
			dropped++
		}
		s.mu.Unlock()
	}
	return dropped
}

// Collector exposes the number of open carts as a gauge.
func (cs *CartSessions) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "checkout",
		Name:      "open_carts",
		Help:      "Number of carts currently open.",
	}, func() float64 { return float64(cs.Len()) })
}

// =============================================================================
// SWEEPER
// =============================================================================

// CartSweeper periodically drops idle carts.
type CartSweeper struct {
	Sessions      *CartSessions
	CheckInterval time.Duration
	TTL           time.Duration
	Enabled       bool
	Logger        *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewCartSweeper(sessions *CartSessions, logger *zap.Logger) *CartSweeper {
	return &CartSweeper{
		Sessions:      sessions,
		CheckInterval: time.Minute,
		TTL:           30 * time.Minute,
		Enabled:       true,
		Logger:        logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweeper.
func (s *CartSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("cart sweeper disabled")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Logger.Info("cart sweeper started",
		zap.Duration("interval", s.CheckInterval),
		zap.Duration("ttl", s.TTL))
}

// Stop stops the sweeper and waits for the loop to exit.
func (s *CartSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("cart sweeper stopped")
	}
}

func (s *CartSweeper) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			if n := s.Sessions.Sweep(s.TTL); n > 0 {
				s.Logger.Info("dropped idle carts", zap.Int("count", n))
			}
		case <-s.stop:
			return
		}
	}
}
