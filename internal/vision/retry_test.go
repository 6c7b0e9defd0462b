package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finforge/pdf2sheet/internal/common"
)

type scriptedModel struct {
	failures int
	calls    int
	out      string
}

func (m *scriptedModel) Complete(context.Context, []byte, string) (string, error) {
	m.calls++
	if m.calls <= m.failures {
		return "", errors.New("transient")
	}
	return m.out, nil
}

func TestCallerSucceedsAfterTransientFailures(t *testing.T) {
	m := &scriptedModel{failures: 2, out: "csv"}
	c := NewCaller(m, 3, time.Millisecond, nil)

	out, err := c.Complete(context.Background(), nil, "p")
	require.NoError(t, err)
	require.Equal(t, "csv", out)
	require.Equal(t, 3, m.calls)
}

func TestCallerExhaustionIsCapabilityUnavailable(t *testing.T) {
	m := &scriptedModel{failures: 10}
	c := NewCaller(m, 2, time.Millisecond, nil)

	_, err := c.Complete(context.Background(), nil, "p")
	require.ErrorIs(t, err, common.ErrCapabilityUnavailable)
	require.Equal(t, 3, m.calls)
}

func TestCallerStopsOnCanceledContext(t *testing.T) {
	m := &scriptedModel{failures: 10}
	c := NewCaller(m, 5, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, nil, "p")
	require.ErrorIs(t, err, context.Canceled)
	require.LessOrEqual(t, m.calls, 1)
}
