package presenter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bassista/atlas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRefresher struct {
	mu       sync.Mutex
	calls    int
	partners []model.Partner
	err      error
	panicMsg string
	// gate, when set, blocks every call until a value is received.
	gate chan struct{}
}

func (s *stubRefresher) RefreshPartners(ctx context.Context) ([]model.Partner, error) {
	s.mu.Lock()
	s.calls++
	gate, partners, err, panicMsg := s.gate, s.partners, s.err, s.panicMsg
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return partners, err
}

func (s *stubRefresher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func partners() []model.Partner {
	return []model.Partner{{StoreID: "P1", Name: "Acme", Status: model.StatusActive, Capacity: 10, Latitude: -23.5, Longitude: -46.6}}
}

func start(t *testing.T, c *Controller) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("presenter loop did not stop")
		}
	})
	return cancel
}

func TestFailure_Messages(t *testing.T) {
	assert.Equal(t, State{Status: StatusError, Message: "boom"}, Failure(errors.New("boom")))
	assert.Equal(t, unknownErrorMessage, Failure(errors.New("")).Message)
	assert.Equal(t, unknownErrorMessage, Failure(nil).Message)
}

func TestSuccess_NilPartners(t *testing.T) {
	s := Success(nil)
	assert.Equal(t, StatusSuccess, s.Status)
	assert.NotNil(t, s.Partners)
}

func TestController_InitialStateIsLoading(t *testing.T) {
	c := New(&stubRefresher{}, 0)
	assert.Equal(t, Loading(), c.Current())
}

func TestController_LoadSuccess(t *testing.T) {
	ref := &stubRefresher{partners: partners()}
	c := New(ref, 0)
	start(t, c)

	assert.Eventually(t, func() bool { return c.Current().Status == StatusSuccess }, time.Second, 5*time.Millisecond)
	assert.Equal(t, partners(), c.Current().Partners)
	assert.Equal(t, 1, ref.Calls())
}

func TestController_LoadError(t *testing.T) {
	fetchErr := &model.FetchError{Cause: errors.New("connection refused")}
	c := New(&stubRefresher{err: fetchErr}, 0)
	start(t, c)

	assert.Eventually(t, func() bool { return c.Current().Status == StatusError }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fetchErr.Error(), c.Current().Message)
	assert.Nil(t, c.Current().Partners)
}

func TestController_PanicBecomesError(t *testing.T) {
	c := New(&stubRefresher{panicMsg: "nil map"}, 0)
	start(t, c)

	assert.Eventually(t, func() bool { return c.Current().Status == StatusError }, time.Second, 5*time.Millisecond)
	assert.Contains(t, c.Current().Message, "nil map")
}

func TestController_SubscribeSeesTransitions(t *testing.T) {
	gate := make(chan struct{})
	ref := &stubRefresher{partners: partners(), gate: gate}
	c := New(ref, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	states := c.Subscribe(ctx)
	assert.Equal(t, StatusLoading, next(t, states).Status)

	start(t, c)
	require.Eventually(t, func() bool { return ref.Calls() == 1 }, time.Second, 5*time.Millisecond)
	gate <- struct{}{}

	// Loading may be dropped in favour of Success; the stream must settle on Success.
	for {
		s := next(t, states)
		if s.Status == StatusSuccess {
			assert.Equal(t, partners(), s.Partners)
			break
		}
		assert.Equal(t, StatusLoading, s.Status)
	}

	c.Refresh()
	assert.Equal(t, StatusLoading, next(t, states).Status)
	gate <- struct{}{}
	assert.Equal(t, StatusSuccess, next(t, states).Status)
}

func TestController_RefreshCoalesces(t *testing.T) {
	gate := make(chan struct{})
	ref := &stubRefresher{partners: partners(), gate: gate}
	c := New(ref, 0)
	start(t, c)

	require.Eventually(t, func() bool { return ref.Calls() == 1 }, time.Second, 5*time.Millisecond)
	for range 5 {
		c.Refresh()
	}
	gate <- struct{}{}

	require.Eventually(t, func() bool { return ref.Calls() == 2 }, time.Second, 5*time.Millisecond)
	gate <- struct{}{}

	assert.Eventually(t, func() bool { return c.Current().Status == StatusSuccess }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, ref.Calls())
}

func TestController_PeriodicRefresh(t *testing.T) {
	ref := &stubRefresher{partners: partners()}
	c := New(ref, 20*time.Millisecond)
	start(t, c)

	assert.Eventually(t, func() bool { return ref.Calls() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestController_SubscriberCancel(t *testing.T) {
	c := New(&stubRefresher{partners: partners()}, 0)
	start(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	states := c.Subscribe(ctx)
	cancel()
	assertClosed(t, states)

	// other subscribers keep working
	other, otherCancel := context.WithCancel(context.Background())
	defer otherCancel()
	live := c.Subscribe(other)
	assert.NotEmpty(t, next(t, live).Status)
}

func TestController_StopClosesSubscribers(t *testing.T) {
	c := New(&stubRefresher{partners: partners()}, 0)
	cancelLoop := start(t, c)

	states := c.Subscribe(context.Background())
	cancelLoop()
	assertClosed(t, states)
}

func next(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "state stream closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
		return State{}
	}
}

func assertClosed(t *testing.T, ch <-chan State) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("state stream was not closed")
		}
	}
}
