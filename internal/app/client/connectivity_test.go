package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

func TestMonitor_SetOnline_NotifiesOnTransition(t *testing.T) {
	monitor := NewMonitor(nil, time.Hour, slog.Default())

	var transitions []bool
	monitor.OnChange(func(online bool) { transitions = append(transitions, online) })

	monitor.SetOnline(false)
	monitor.SetOnline(false) // same state, no notification
	monitor.SetOnline(true)

	assert.Equal(t, []bool{false, true}, transitions)
	assert.True(t, monitor.IsOnline())
}

func TestMonitor_OnChange_Unsubscribe(t *testing.T) {
	monitor := NewMonitor(nil, time.Hour, slog.Default())

	notified := 0
	unsubscribe := monitor.OnChange(func(bool) { notified++ })

	monitor.SetOnline(false)
	unsubscribe()
	monitor.SetOnline(true)

	assert.Equal(t, 1, notified)
}

func TestMonitor_ProbeLoop(t *testing.T) {
	remote := new(MockRemoteStore)
	remote.On("Health", mock.Anything).Return(assert.AnError)

	monitor := NewMonitor(remote, 5*time.Millisecond, slog.Default())

	offline := make(chan struct{})
	monitor.OnChange(func(online bool) {
		if !online {
			close(offline)
		}
	})

	monitor.Start(context.Background())
	defer monitor.Stop()

	select {
	case <-offline:
	case <-time.After(time.Second):
		t.Fatal("probe never flipped the monitor offline")
	}

	assert.False(t, monitor.IsOnline())
}

func TestMonitor_StartTwice(t *testing.T) {
	remote := new(MockRemoteStore)
	remote.On("Health", mock.Anything).Return(nil)

	monitor := NewMonitor(remote, time.Hour, slog.Default())

	monitor.Start(context.Background())
	monitor.Start(context.Background())
	monitor.Stop()

	// A second Stop must not block or panic.
	monitor.Stop()
}
