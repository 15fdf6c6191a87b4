package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := newShutdownHandler(time.Second)
	var order []string
	sh.AddFunc("storage", func() error { order = append(order, "storage"); return nil })
	sh.AddFunc("trade-log", func() error { order = append(order, "trade-log"); return nil })

	require.NoError(t, sh.Shutdown(zap.NewNop()))
	assert.Equal(t, []string{"trade-log", "storage"}, order)

	// a second shutdown has nothing left to close
	require.NoError(t, sh.Shutdown(zap.NewNop()))
	assert.Len(t, order, 2)
}

func TestShutdownReportsFailures(t *testing.T) {
	sh := newShutdownHandler(50 * time.Millisecond)
	boom := errors.New("boom")
	block := make(chan struct{})
	defer close(block)

	sh.AddFunc("broken", func() error { return boom })
	sh.AddFunc("stuck", func() error { <-block; return nil })

	err := sh.Shutdown(zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "stuck: shutdown timeout")
}
