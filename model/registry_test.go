package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scriptrun/model"
)

func TestRegistryCreateAndGet(t *testing.T) {
	reg := model.NewRegistry("/tmp/logs", 2500, 0)

	a := reg.Create("demo.sh")
	b := reg.Create("demo.sh")
	require.NotEqual(t, a.ID, b.ID)
	require.True(t, strings.HasSuffix(a.LogPath, a.ID+".log"))
	require.Equal(t, model.StatusQueued, a.Snapshot().Status)

	got, ok := reg.Get(a.ID)
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = reg.Get("nope")
	require.False(t, ok)
}

func TestRegistrySweepEvictsFinished(t *testing.T) {
	reg := model.NewRegistry("/tmp/logs", 2500, time.Minute)

	finished := reg.Create("demo.sh")
	finished.Finish(0)
	running := reg.Create("demo.sh")
	running.MarkRunning()

	// Nothing is old enough yet.
	require.Equal(t, 0, reg.Sweep(time.Now()))
	require.Equal(t, 2, reg.Len())

	// Well past the retention window the finished job goes, the running
	// one stays.
	removed := reg.Sweep(time.Now().Add(time.Hour))
	require.Equal(t, 1, removed)
	_, ok := reg.Get(finished.ID)
	require.False(t, ok)
	_, ok = reg.Get(running.ID)
	require.True(t, ok)
}

func TestRegistrySweepDisabled(t *testing.T) {
	reg := model.NewRegistry("/tmp/logs", 2500, 0)
	j := reg.Create("demo.sh")
	j.Finish(0)
	require.Equal(t, 0, reg.Sweep(time.Now().Add(24*time.Hour)))
	require.Equal(t, 1, reg.Len())
}
