package streaming

import (
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("auto")
	require.NoError(t, err)
	require.Equal(t, ModeAuto, m)

	m, err = ParseMode("on")
	require.NoError(t, err)
	require.Equal(t, ModeOn, m)

	m, err = ParseMode("off")
	require.NoError(t, err)
	require.Equal(t, ModeOff, m)

	_, err = ParseMode("bogus")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestDetector_OnOffModesIgnoreObservations(t *testing.T) {
	d := NewDetector(ModeOn, ModeOff)
	require.True(t, d.DifferentialEnabled())
	require.False(t, d.ProgressEnabled())

	d.Observe(false, true)
	require.True(t, d.DifferentialEnabled())
	require.False(t, d.ProgressEnabled())
}

func TestDetector_AutoModeFollowsObservation(t *testing.T) {
	d := NewDetector(ModeAuto, ModeAuto)
	require.False(t, d.DifferentialEnabled())
	require.False(t, d.ProgressEnabled())

	d.Observe(true, false)
	require.True(t, d.DifferentialEnabled())
	require.False(t, d.ProgressEnabled())
}

func TestDetector_LocksInAfterDetectionWindow(t *testing.T) {
	d := NewDetector(ModeAuto, ModeAuto)
	for i := 0; i < DetectionWindow; i++ {
		d.Observe(false, false)
	}
	require.True(t, d.Settled())

	d.Observe(true, true)
	require.False(t, d.DifferentialEnabled(), "observations after the window closes must not change the locked-in decision")
	require.False(t, d.ProgressEnabled())
}

func TestPlanner_RoundRobinsSortedPathsAcrossWorkers(t *testing.T) {
	p := &Planner{Workers: 2}
	assignments := p.Plan([]string{"c.ddshow", "a.ddshow", "b.ddshow"})

	require.Len(t, assignments, 2)
	require.Equal(t, []string{"a.ddshow", "c.ddshow"}, assignments[0].Paths)
	require.Equal(t, []string{"b.ddshow"}, assignments[1].Paths)
}

func TestPlanner_WorkersClampedToPathCount(t *testing.T) {
	p := &Planner{Workers: 10}
	assignments := p.Plan([]string{"a.ddshow", "b.ddshow"})
	require.Len(t, assignments, 2)
}

func TestPlanner_ZeroWorkersClampsToOne(t *testing.T) {
	p := &Planner{Workers: 0}
	assignments := p.Plan([]string{"a.ddshow", "b.ddshow"})
	require.Len(t, assignments, 1)
	require.Equal(t, []string{"a.ddshow", "b.ddshow"}, assignments[0].Paths)
}

func TestPlanner_EmptyPathsReturnsNil(t *testing.T) {
	p := &Planner{Workers: 4}
	require.Nil(t, p.Plan(nil))
}

func TestShutdownGuard_CloseStopsFlagIdempotently(t *testing.T) {
	running := &atomic.Bool{}
	running.Store(true)

	g := NewShutdownGuard(running, slog.New(slog.DiscardHandler))
	g.Close()
	require.False(t, running.Load())

	require.NotPanics(t, func() { g.stop() })
}

func TestShutdownGuard_SignalStopsFlag(t *testing.T) {
	running := &atomic.Bool{}
	running.Store(true)

	g := NewShutdownGuard(running, slog.New(slog.DiscardHandler))
	defer g.Close()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	require.Eventually(t, func() bool { return !running.Load() }, time.Second, time.Millisecond)
}
