package timer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wrenfield/asyncrt/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAfterFiresAfterDuration(t *testing.T) {
	a := timer.NewAlarmClock()
	defer a.Close()

	start := time.Now()
	_, err := a.After(30 * time.Millisecond).Get()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestEarlierTimerWakesBeforeLater(t *testing.T) {
	a := timer.NewAlarmClock()
	defer a.Close()

	var mu sync.Mutex
	var order []string

	a.SetTimer(time.Now().Add(200*time.Millisecond), func() {
		mu.Lock()
		order = append(order, "late")
		mu.Unlock()
	})
	a.SetTimer(time.Now().Add(20*time.Millisecond), func() {
		mu.Lock()
		order = append(order, "early")
		mu.Unlock()
	})

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestSameDeadlineTimersBothFire(t *testing.T) {
	a := timer.NewAlarmClock()
	defer a.Close()

	when := time.Now().Add(20 * time.Millisecond)
	done := make(chan struct{}, 2)
	a.SetTimer(when, func() { done <- struct{}{} })
	a.SetTimer(when, func() { done <- struct{}{} })

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timer never fired")
		}
	}
}

func TestPanicInActionDoesNotKillScheduler(t *testing.T) {
	a := timer.NewAlarmClock()
	defer a.Close()

	a.SetTimer(time.Now().Add(10*time.Millisecond), func() { panic("boom") })

	done := make(chan struct{})
	a.SetTimer(time.Now().Add(20*time.Millisecond), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not survive a panicking action")
	}
}

func TestCloseWaitsForBackgroundGoroutine(t *testing.T) {
	a := timer.NewAlarmClock()
	require.NoError(t, a.Close())

	select {
	case <-a.Done():
	default:
		t.Fatal("Done channel should be closed once Close returns")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a := timer.NewAlarmClock()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestSetTimerAfterCloseIsNoop(t *testing.T) {
	a := timer.NewAlarmClock()
	require.NoError(t, a.Close())

	fired := make(chan struct{})
	a.SetTimer(time.Now().Add(10*time.Millisecond), func() { close(fired) })

	select {
	case <-fired:
		t.Fatal("timer set after Close should never fire")
	case <-time.After(50 * time.Millisecond):
	}
}
