package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Unix(1700000000, 0)

func TestClock_StartsAtStart(t *testing.T) {
	c := NewClock(epoch, time.Second)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	assert.Equal(t, int64(2), c.Calls())
}

func TestClock_ZeroStepIsFixed(t *testing.T) {
	c := NewClock(epoch, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, epoch, c.Now())
	}
}

func TestClock_Reset(t *testing.T) {
	c := NewClock(epoch, time.Minute)
	c.Now()
	c.Now()
	c.Reset()

	assert.Equal(t, int64(0), c.Calls())
	assert.Equal(t, epoch, c.Now())
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock(epoch, time.Nanosecond)

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := c.Now()
			if _, dup := seen.LoadOrStore(now, true); dup {
				t.Errorf("duplicate time %v", now)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Calls())
}
