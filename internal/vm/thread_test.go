package vm

import (
	"testing"
	"time"

	"github.com/ristrettovm/ristretto/internal/classfile"
	"github.com/ristrettovm/ristretto/internal/gc"
)

func TestThreadTableBoundsConcurrentThreads(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{}}
	machine := NewWithMaxThreads(loader, gc.NewCollector(nil), nil, nil, nil, 1)
	first := NewThread(machine)

	done := make(chan *Thread, 1)
	go func() { done <- NewThread(machine) }()

	select {
	case <-done:
		t.Fatal("NewThread should block while the single thread-table slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	first.Detach()

	select {
	case second := <-done:
		second.Detach()
	case <-time.After(time.Second):
		t.Fatal("NewThread should unblock once Detach releases the slot")
	}
}
