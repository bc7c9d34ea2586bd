package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	clock := NewManualClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock()

	clock.Advance(250 * time.Millisecond)
	assert.Equal(t, Epoch.Add(250*time.Millisecond), clock.Now())

	clock.Advance(time.Second)
	assert.Equal(t, Epoch.Add(1250*time.Millisecond), clock.Now())
}

func TestManualClock_Set(t *testing.T) {
	clock := NewManualClock()
	clock.Advance(time.Hour)

	clock.Set(Epoch.Add(-time.Minute))
	assert.Equal(t, Epoch.Add(-time.Minute), clock.Now())

	clock.Advance(time.Minute)
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock()
	const goroutines = 10
	const advancesPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < advancesPerGoroutine; j++ {
				clock.Advance(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(goroutines*advancesPerGoroutine*time.Millisecond), clock.Now())
}
