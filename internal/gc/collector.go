package gc

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// mutatorRendezvousTimeout bounds how long Collect waits for a registered
// mutator to reach a safepoint before proceeding without it. A mutator that
// is simply not running right now (parked in a blocking native call, say)
// should not be able to wedge every future collection cycle.
const mutatorRendezvousTimeout = 2 * time.Second

type cellRecord struct {
	marked    bool
	rootCount int32
	value     any
	traceFn   func(c *Collector)
}

// Collector is the managed heap: cell storage, root bookkeeping, and the
// stop-the-world mark-sweep cycle (spec §4.D). The zero value is not usable;
// construct with NewCollector.
type Collector struct {
	mu    sync.Mutex
	cells map[uint64]*cellRecord

	nextID    uint64
	nextMutID uint64
	mutators  map[uint64]*Mutator

	collecting bool
	resumeCh   chan struct{}
	shutdown   bool
	cycles     int

	log *logrus.Logger
}

// NewCollector constructs an empty Collector. A nil logger is replaced with
// a discard logger, matching the rest of the runtime's "logging is optional,
// never required for correctness" convention.
func NewCollector(log *logrus.Logger) *Collector {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Collector{
		cells:    make(map[uint64]*cellRecord),
		mutators: make(map[uint64]*Mutator),
		log:      log,
	}
}

func (c *Collector) isShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

// Shutdown tears the collector down: subsequent NewGc calls fail with
// CollectorShutdownError.
func (c *Collector) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// CellCount returns the number of live cells, for diagnostics and tests.
func (c *Collector) CellCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cells)
}

// Cycles returns the number of completed collection cycles.
func (c *Collector) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

func allocCell[T Trace](c *Collector, value T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.cells[id] = &cellRecord{
		value:   value,
		traceFn: func(cc *Collector) { value.Trace(cc) },
	}
	return id
}

func (c *Collector) incRoot(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cell := c.cells[id]; cell != nil {
		cell.rootCount++
	}
}

func (c *Collector) decRoot(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cell := c.cells[id]; cell != nil && cell.rootCount > 0 {
		cell.rootCount--
	}
}

// markCell marks a cell and, only on the transition from unmarked to
// marked, recurses into its payload's Trace. Already-marked cells return
// immediately, which is what terminates cycles.
func (c *Collector) markCell(id uint64) {
	c.mu.Lock()
	cell := c.cells[id]
	if cell == nil || cell.marked {
		c.mu.Unlock()
		return
	}
	cell.marked = true
	traceFn := cell.traceFn
	c.mu.Unlock()
	if traceFn != nil {
		traceFn(c)
	}
}

func (c *Collector) mark() {
	c.mu.Lock()
	roots := make([]uint64, 0)
	for id, cell := range c.cells {
		if cell.rootCount > 0 {
			roots = append(roots, id)
		}
	}
	c.mu.Unlock()
	for _, id := range roots {
		c.markCell(id)
	}
}

func (c *Collector) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	reclaimed := 0
	for id, cell := range c.cells {
		if !cell.marked {
			delete(c.cells, id)
			reclaimed++
		} else {
			cell.marked = false
		}
	}
	return reclaimed
}

// Collect runs one full collection cycle: request safepoint, rendezvous
// with registered mutators, mark, sweep, release (spec §4.D "Collection
// cycle"). It is safe to call concurrently; a cycle already in flight makes
// later callers no-ops rather than stacking cycles.
func (c *Collector) Collect() error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return &CollectorShutdownError{}
	}
	if c.collecting {
		c.mu.Unlock()
		return nil
	}
	c.collecting = true
	resumeCh := make(chan struct{})
	c.resumeCh = resumeCh
	mutators := make([]*Mutator, 0, len(c.mutators))
	for _, m := range c.mutators {
		mutators = append(mutators, m)
	}
	c.mu.Unlock()

	c.rendezvous(mutators)

	c.mark()
	reclaimed := c.sweep()

	c.mu.Lock()
	c.cycles++
	cycle := c.cycles
	c.collecting = false
	c.mu.Unlock()
	close(resumeCh)

	c.log.WithFields(logrus.Fields{
		"cycle":     cycle,
		"reclaimed": reclaimed,
	}).Debug("gc cycle complete")
	return nil
}

// rendezvous waits for every registered mutator to observe the collection
// request and park, bounded by mutatorRendezvousTimeout so a mutator that
// isn't currently polling Safepoint cannot block collection indefinitely.
func (c *Collector) rendezvous(mutators []*Mutator) {
	if len(mutators) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mutatorRendezvousTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range mutators {
		m := m
		g.Go(func() error {
			select {
			case <-m.parked:
				return nil
			case <-gctx.Done():
				return nil
			}
		})
	}
	_ = g.Wait()
}

// Start begins a background goroutine that runs a collection cycle every
// interval, until the returned stop function is called (spec §4.D
// "start() — begins the background cycle scheduler").
func (c *Collector) Start(interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.Collect()
			}
		}
	}()
	return cancel
}
