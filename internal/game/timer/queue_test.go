package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/timer"
)

func TestQueue_FiresInTimeOrder(t *testing.T) {
	q := timer.NewQueue()
	var got []string
	q.Schedule(300*time.Millisecond, func() { got = append(got, "c") })
	q.Schedule(100*time.Millisecond, func() { got = append(got, "a") })
	q.Schedule(200*time.Millisecond, func() { got = append(got, "b") })

	fired := q.Advance(250 * time.Millisecond)
	assert.Equal(t, 2, fired)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 250*time.Millisecond, q.Now())
	assert.Equal(t, 1, q.Len())

	q.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, int64(1250), q.NowMillis())
}

func TestQueue_EqualTimesAreFIFO(t *testing.T) {
	q := timer.NewQueue()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(time.Second, func() { got = append(got, i) })
	}
	q.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueue_CallbackObservesFireTime(t *testing.T) {
	q := timer.NewQueue()
	var seen time.Duration
	q.Schedule(400*time.Millisecond, func() { seen = q.Now() })
	q.Advance(time.Second)
	assert.Equal(t, 400*time.Millisecond, seen)
	assert.Equal(t, time.Second, q.Now())
}

func TestQueue_CallbacksMayScheduleWithinAdvance(t *testing.T) {
	q := timer.NewQueue()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 10 {
			q.Schedule(100*time.Millisecond, tick)
		}
	}
	q.Schedule(100*time.Millisecond, tick)
	q.Advance(time.Second)
	assert.Equal(t, 10, ticks)
	assert.Equal(t, 0, q.Len())
}

func TestHandle_Cancel(t *testing.T) {
	q := timer.NewQueue()
	called := false
	h := q.Schedule(time.Second, func() { called = true })
	assert.True(t, h.Pending())
	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())
	assert.False(t, h.Pending())
	q.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestHandle_CancelAfterFire(t *testing.T) {
	q := timer.NewQueue()
	h := q.Schedule(time.Millisecond, func() {})
	q.Advance(time.Second)
	assert.False(t, h.Cancel())
	var nilHandle *timer.Handle
	assert.False(t, nilHandle.Cancel())
}

func TestQueue_AdvanceToPastIsNoOp(t *testing.T) {
	q := timer.NewQueue()
	q.Advance(time.Second)
	q.AdvanceTo(500 * time.Millisecond)
	assert.Equal(t, time.Second, q.Now())
}

func TestQueue_Property_FiresSortedAndOnlyUncancelled(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		q := timer.NewQueue()
		n := rapid.IntRange(1, 40).Draw(rt, "n")
		var fired []time.Duration
		cancelled := map[int]bool{}
		handles := make([]*timer.Handle, n)
		for i := 0; i < n; i++ {
			d := time.Duration(rapid.IntRange(0, 5000).Draw(rt, "ms")) * time.Millisecond
			handles[i] = q.Schedule(d, func() { fired = append(fired, q.Now()) })
		}
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(rt, "cancel") {
				handles[i].Cancel()
				cancelled[i] = true
			}
		}
		q.Advance(10 * time.Second)
		require.Len(rt, fired, n-len(cancelled))
		for i := 1; i < len(fired); i++ {
			if fired[i] < fired[i-1] {
				rt.Fatalf("out of order: %v before %v", fired[i-1], fired[i])
			}
		}
	})
}
