package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devblok/tessera/core"
)

func TestTimeUncapped(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 0})
	tm.Start()
	defer tm.Stop()

	for i := 0; i < 5; i++ {
		tm.NewFrame()
		tm.Tick()
	}
	assert.Equal(t, uint64(5), tm.Frames())
	assert.GreaterOrEqual(t, tm.Delta(), time.Duration(0))
}

func TestTimeCappedPaces(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 100})
	tm.Start()
	defer tm.Stop()

	begin := time.Now()
	for i := 0; i < 3; i++ {
		tm.Tick()
	}
	assert.GreaterOrEqual(t, time.Since(begin), 20*time.Millisecond)
	assert.Equal(t, 100, tm.Fps())
}
