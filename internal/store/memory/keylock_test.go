package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocksSerializeSameKey(t *testing.T) {
	locks := newKeyLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("user:a")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks)
}

func TestKeyLocksMultiKeyOrderingDoesNotDeadlock(t *testing.T) {
	locks := newKeyLocks()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.Lock("a", "b")()
		}()
		go func() {
			defer wg.Done()
			locks.Lock("b", "a", "b")()
		}()
	}
	wg.Wait()
	assert.Empty(t, locks.locks)
}
