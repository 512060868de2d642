package goroutine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

func TestSafeRun(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("returns fn error", func(t *testing.T) {
		want := errors.New("fail")
		err := SafeRun(log, "job", func() error { return want })
		assert.ErrorIs(t, err, want)
	})

	t.Run("recovers panic", func(t *testing.T) {
		err := SafeRun(log, "job", func() error { panic("kaboom") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job panicked: kaboom")
	})
}

func TestSafeGo_Recovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo(logger.NewNopLogger(), "bg", func() {
		defer wg.Done()
		panic("bg")
	})
	wg.Wait()
}
