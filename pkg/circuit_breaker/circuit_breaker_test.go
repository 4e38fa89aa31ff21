package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	cb "github.com/astralibs/lending-service/pkg/circuit_breaker"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_Call(t *testing.T) {
	t.Parallel()

	errService := errors.New("service error")
	ok := func() error { return nil }
	fail := func() error { return errService }

	t.Run("stays closed on success", func(t *testing.T) {
		t.Parallel()
		breaker := cb.New(10, time.Second, 0.5, 3)
		for i := 0; i < 50; i++ {
			require.NoError(t, breaker.Call(ok))
		}
	})

	t.Run("opens after failure percentile and rejects fast", func(t *testing.T) {
		t.Parallel()
		breaker := cb.New(10, time.Minute, 0.5, 3)
		for i := 0; i < 10; i++ {
			_ = breaker.Call(fail)
		}
		require.ErrorIs(t, breaker.Call(ok), cb.ErrOpenCB)
	})

	t.Run("recovers through half-open", func(t *testing.T) {
		t.Parallel()
		breaker := cb.New(10, 20*time.Millisecond, 0.5, 2)
		for i := 0; i < 10; i++ {
			_ = breaker.Call(fail)
		}
		require.ErrorIs(t, breaker.Call(ok), cb.ErrOpenCB)

		time.Sleep(30 * time.Millisecond)

		// half-open admits calls again; enough successes close it
		for i := 0; i < 5; i++ {
			require.NoError(t, breaker.Call(ok))
		}
		require.NoError(t, breaker.Call(ok))
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		t.Parallel()
		breaker := cb.New(10, 20*time.Millisecond, 0.5, 3)
		for i := 0; i < 10; i++ {
			_ = breaker.Call(fail)
		}
		time.Sleep(30 * time.Millisecond)

		require.ErrorIs(t, breaker.Call(fail), errService)
		require.ErrorIs(t, breaker.Call(ok), cb.ErrOpenCB)
	})
}
