package model_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptrun/model"
)

func newJob(cap int) *model.Job {
	return model.NewJob("job-1", "demo.sh", "/tmp/job-1.log", cap)
}

func TestSetProgressClamps(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{40, 40},
		{100, 100},
		{150, 100},
		{999, 100},
	}
	for _, c := range cases {
		j := newJob(10)
		j.SetProgress(c.in, "")
		require.Equal(t, c.want, j.Snapshot().Percent, "percent for input %d", c.in)
	}
}

func TestSetProgressStepPolicy(t *testing.T) {
	j := newJob(10)
	j.SetProgress(10, "unpacking")
	require.Equal(t, "unpacking", j.Snapshot().Step)

	// An empty step must not clobber the previous one.
	j.SetProgress(20, "")
	snap := j.Snapshot()
	require.Equal(t, 20, snap.Percent)
	require.Equal(t, "unpacking", snap.Step)

	j.SetProgress(30, "linking")
	require.Equal(t, "linking", j.Snapshot().Step)
}

func TestFinishSuccessForcesDone(t *testing.T) {
	j := newJob(10)
	j.MarkRunning()
	require.Equal(t, model.StatusRunning, j.Snapshot().Status)
	require.Equal(t, model.StepStarting, j.Snapshot().Step)

	j.Finish(0)
	snap := j.Snapshot()
	require.True(t, snap.Done)
	require.Equal(t, model.StatusFinished, snap.Status)
	require.Equal(t, 100, snap.Percent)
	require.Equal(t, "done", snap.Step)
	require.NotNil(t, snap.ReturnCode)
	require.Equal(t, 0, *snap.ReturnCode)
}

func TestFinishSuccessKeepsExplicitStep(t *testing.T) {
	j := newJob(10)
	j.MarkRunning()
	j.SetProgress(80, "uploading")

	j.Finish(0)
	snap := j.Snapshot()
	require.Equal(t, 100, snap.Percent)
	require.Equal(t, "uploading", snap.Step)
}

func TestFinishFailureLeavesLastObserved(t *testing.T) {
	j := newJob(10)
	j.MarkRunning()
	j.SetProgress(40, "halfway")

	j.Finish(3)
	snap := j.Snapshot()
	require.True(t, snap.Done)
	require.Equal(t, model.StatusError, snap.Status)
	require.Equal(t, 40, snap.Percent)
	require.Equal(t, "halfway", snap.Step)
	require.Equal(t, 3, *snap.ReturnCode)
}

func TestFailBeforeStart(t *testing.T) {
	j := newJob(10)
	j.FailBeforeStart(127)
	snap := j.Snapshot()
	require.True(t, snap.Done)
	require.Equal(t, model.StatusError, snap.Status)
	require.Equal(t, 127, *snap.ReturnCode)
	require.Equal(t, 0, snap.Percent)
}

func TestHistoryEviction(t *testing.T) {
	j := newJob(5)
	for i := 0; i < 8; i++ {
		j.AppendLine(fmt.Sprintf("line %d", i))
	}
	require.Equal(t, 5, j.HistoryLen())

	// Oldest lines dropped first, order preserved.
	lines, cursor := j.LinesSince(0)
	require.Equal(t, 5, cursor)
	require.Equal(t, []string{"line 3", "line 4", "line 5", "line 6", "line 7"}, lines)
}

func TestHistoryTrimsOnlyPastCap(t *testing.T) {
	j := newJob(3)
	j.AppendLine("a")
	j.AppendLine("b")
	j.AppendLine("c")
	require.Equal(t, 3, j.HistoryLen())
	j.AppendLine("d")
	require.Equal(t, 3, j.HistoryLen())
}

func TestLinesSinceCursor(t *testing.T) {
	j := newJob(100)
	j.AppendLine("a")
	j.AppendLine("b")
	j.AppendLine("c")

	lines, cursor := j.LinesSince(0)
	require.Equal(t, []string{"a", "b", "c"}, lines)
	require.Equal(t, 3, cursor)

	j.AppendLine("d")
	lines, cursor = j.LinesSince(cursor)
	require.Equal(t, []string{"d"}, lines)
	require.Equal(t, 4, cursor)

	lines, cursor = j.LinesSince(cursor)
	require.Empty(t, lines)
	require.Equal(t, 4, cursor)
}
