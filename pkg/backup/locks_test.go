package backup_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foliohq/folio/pkg/backup"
)

func TestScopeLocksOwner(t *testing.T) {
	locks := backup.NewScopeLocks()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.LockOwner("alice")
			defer unlock()
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestScopeLocksDifferentOwners(t *testing.T) {
	locks := backup.NewScopeLocks()

	unlockAlice := locks.LockOwner("alice")
	done := make(chan struct{})
	go func() {
		unlock := locks.LockOwner("bob")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("owner locks must not block each other")
	}
	unlockAlice()
}

func TestScopeLocksSystem(t *testing.T) {
	locks := backup.NewScopeLocks()

	unlockAlice := locks.LockOwner("alice")
	acquired := make(chan func())
	go func() {
		acquired <- locks.LockSystem()
	}()

	select {
	case <-acquired:
		t.Fatal("system lock acquired while an owner restore runs")
	case <-time.After(20 * time.Millisecond):
	}
	unlockAlice()

	var unlockSystem func()
	select {
	case unlockSystem = <-acquired:
	case <-time.After(time.Second):
		t.Fatal("system lock never acquired")
	}

	blocked := make(chan struct{})
	go func() {
		unlock := locks.LockOwner("bob")
		unlock()
		close(blocked)
	}()
	select {
	case <-blocked:
		t.Fatal("owner lock acquired during a system restore")
	case <-time.After(20 * time.Millisecond):
	}
	unlockSystem()
	<-blocked
}
