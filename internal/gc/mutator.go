package gc

// Mutator is a registered handle for a thread of execution that allocates
// and mutates Gc references. The execution engine's Thread (spec §4.E)
// registers one Mutator per VM thread and calls Safepoint at method
// prologues, backward branches, and allocation sites (spec §4.D
// "Rendezvous").
type Mutator struct {
	id     uint64
	c      *Collector
	parked chan struct{}
}

// RegisterMutator registers a new mutator with the collector. Callers must
// Unregister it when the thread exits.
func (c *Collector) RegisterMutator() *Mutator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextMutID++
	m := &Mutator{id: c.nextMutID, c: c, parked: make(chan struct{})}
	c.mutators[m.id] = m
	return m
}

// Unregister removes m from the collector's mutator set.
func (m *Mutator) Unregister() {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	delete(m.c.mutators, m.id)
}

// Safepoint observes whether a collection has been requested and, if so,
// parks until the cycle's release phase closes the resume channel (spec
// §4.D "All mutator threads observe the flag at well-known points ... and
// yield until released").
func (m *Mutator) Safepoint() {
	m.c.mu.Lock()
	collecting := m.c.collecting
	resumeCh := m.c.resumeCh
	m.c.mu.Unlock()
	if !collecting {
		return
	}
	select {
	case m.parked <- struct{}{}:
	case <-resumeCh:
		return
	}
	<-resumeCh
}
