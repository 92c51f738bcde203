package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshRecordsEveryProbe(t *testing.T) {
	m := New([]Probe{
		{Name: "store", Check: func(ctx context.Context) error { return nil }},
		{Name: "sessions", Check: func(ctx context.Context) error { return errors.New("down") }},
	}, time.Minute, nil)

	assert.False(t, m.IsOnline())

	status := m.Refresh(context.Background())
	assert.True(t, status.Services["store"])
	assert.False(t, status.Services["sessions"])
	assert.False(t, status.Healthy())
	assert.False(t, m.IsOnline())
}

func TestStartStop(t *testing.T) {
	m := New([]Probe{
		{Name: "store", Check: func(ctx context.Context) error { return nil }},
	}, time.Hour, nil)

	require.NoError(t, m.Start())
	assert.True(t, m.IsOnline())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}

func TestGetStatusReturnsCopy(t *testing.T) {
	m := New([]Probe{{Name: "store", Check: func(ctx context.Context) error { return nil }}}, time.Minute, nil)
	m.Refresh(context.Background())

	status := m.GetStatus()
	status.Services["store"] = false
	assert.True(t, m.GetStatus().Services["store"])
}
