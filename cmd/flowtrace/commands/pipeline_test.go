package commands

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/config"
	"github.com/flowsight/flowsight/pkg/correlate"
	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/framing"
	"github.com/flowsight/flowsight/pkg/opstats"
	"github.com/flowsight/flowsight/pkg/streaming"
)

func TestDiscoverReplayFiles_GroupsByBasenamePrefixAndSkipsOthers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"timely.0.ddshow", "timely.1.ddshow",
		"differential.0.ddshow",
		"progress.0.ddshow",
		"notes.txt", "timely.backup",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "timely.sub.ddshow"), 0o755))

	timely, diff, prog, err := discoverReplayFiles(dir)
	require.NoError(t, err)
	require.Len(t, timely, 2)
	require.Len(t, diff, 1)
	require.Len(t, prog, 1)
}

func TestDiscoverReplayFiles_MissingDirReturnsError(t *testing.T) {
	_, _, _, err := discoverReplayFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestDiscoverWorkerCount_UsesExplicitConfigValueFirst(t *testing.T) {
	cfg := &config.Config{Workers: 7}
	require.Equal(t, 7, discoverWorkerCount(cfg))
}

func TestDiscoverWorkerCount_FallsBackToDefaultWithNoMemoryBudget(t *testing.T) {
	cfg := &config.Config{}
	require.Greater(t, discoverWorkerCount(cfg), 0)
}

func TestDiscoverWorkerCount_InvalidMemoryBudgetFallsBackToDefault(t *testing.T) {
	cfg := &config.Config{MemoryBudget: "not-a-size"}
	require.Greater(t, discoverWorkerCount(cfg), 0)
}

func TestAutoModeFor_TrueForcesOnFalseDefersToAuto(t *testing.T) {
	require.Equal(t, streaming.ModeOn, autoModeFor(true))
	require.Equal(t, streaming.ModeAuto, autoModeFor(false))
}

func TestPathsFor_FindsWorkerAssignmentOrReturnsNil(t *testing.T) {
	plan := []streaming.WorkerAssignment{
		{Worker: 0, Paths: []string{"a"}},
		{Worker: 2, Paths: []string{"b", "c"}},
	}
	require.Equal(t, []string{"a"}, pathsFor(plan, 0))
	require.Equal(t, []string{"b", "c"}, pathsFor(plan, 2))
	require.Nil(t, pathsFor(plan, 1))
}

func TestValuesOf_CollectsMapValuesRegardlessOfKeyOrder(t *testing.T) {
	m := map[events.WorkerId]events.CountStats{
		3: {Events: 30},
		1: {Events: 10},
	}
	vs := valuesOf(m)
	require.Len(t, vs, 2)
	total := uint64(0)
	for _, v := range vs {
		total += v.Events
	}
	require.Equal(t, uint64(40), total)
}

func TestValuesOf_EmptyMapReturnsEmptySlice(t *testing.T) {
	require.Empty(t, valuesOf(nil))
}

func TestProcessMerge_BeginThenCloseRecordsArrangementActivity(t *testing.T) {
	c := correlate.New()
	b := opstats.NewBuilder()
	worker := events.WorkerId(0)
	op := events.OperatorId(5)

	// Builder.Stats only materializes operators that had at least one
	// closed activation, so seed one before exercising the merge path.
	b.AddActivation(events.WorkerOperator{Worker: worker, Operator: op}, 100)

	processMerge(c, b, worker, 10, events.DifferentialEvent{
		Merge: events.Merge{Operator: op, Outcome: events.MergeBegin},
	})
	processMerge(c, b, worker, 20, events.DifferentialEvent{
		Merge: events.Merge{Operator: op, Outcome: events.MergeBegin + 1},
	})

	stats := b.Stats()
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0].ArrangementSize)
	require.Equal(t, uint64(1), stats[0].ArrangementSize.Max)
}

func TestProcessMerge_CloseWithoutMatchingBeginIsIgnored(t *testing.T) {
	c := correlate.New()
	b := opstats.NewBuilder()
	worker := events.WorkerId(0)
	op := events.OperatorId(5)
	b.AddActivation(events.WorkerOperator{Worker: worker, Operator: op}, 100)

	processMerge(c, b, worker, 20, events.DifferentialEvent{
		Merge: events.Merge{Operator: op, Outcome: events.MergeBegin + 1},
	})

	require.Nil(t, b.Stats()[0].ArrangementSize)
}

func frame(payload []byte) []byte {
	var out [4]byte
	n := uint32(len(payload))
	out[0] = byte(n)
	out[1] = byte(n >> 8)
	out[2] = byte(n >> 16)
	out[3] = byte(n >> 24)
	return append(out[:], payload...)
}

func TestOpenSources_OpensOneFramingSourcePerPath(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.ddshow")
	p2 := filepath.Join(dir, "b.ddshow")
	require.NoError(t, os.WriteFile(p1, frame([]byte("x")), 0o644))
	require.NoError(t, os.WriteFile(p2, frame([]byte("y")), 0o644))

	decode := func(payload []byte) (string, error) { return string(payload), nil }
	sources, closers, err := openSources([]string{p1, p2}, framing.SelfDescribing, "", decode)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Len(t, closers, 2)
	closeAll(closers)
}

func TestOpenSources_MissingFileReturnsErrorAndClosesOpenedFiles(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.ddshow")
	require.NoError(t, os.WriteFile(p1, frame([]byte("x")), 0o644))
	missing := filepath.Join(dir, "missing.ddshow")

	decode := func(payload []byte) (string, error) { return string(payload), nil }
	_, _, err := openSources([]string{p1, missing}, framing.SelfDescribing, "", decode)
	require.Error(t, err)
}

func TestOpenSources_SaveLogsTeesIntoCopyFile(t *testing.T) {
	dir := t.TempDir()
	saveDir := t.TempDir()
	p1 := filepath.Join(dir, "a.ddshow")
	payload := frame([]byte("hello"))
	require.NoError(t, os.WriteFile(p1, payload, 0o644))

	decode := func(b []byte) (string, error) { return string(b), nil }
	sources, closers, err := openSources([]string{p1}, framing.SelfDescribing, saveDir, decode)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	// Drain the source so the tee copy observes the bytes read.
	for {
		_, finished, err := sources[0].Next()
		require.NoError(t, err)
		if finished {
			break
		}
	}
	closeAll(closers)

	copied, err := os.ReadFile(filepath.Join(saveDir, "a.ddshow.copy"))
	require.NoError(t, err)
	require.Equal(t, payload, copied)
}

func TestCloseAll_ClosesEveryCloserEvenAfterFirstCloses(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "x"))
	require.NoError(t, err)
	var closers []io.Closer
	closers = append(closers, f, f)
	require.NotPanics(t, func() { closeAll(closers) })
}

func TestWorkerInputs_MuAndDetectorFieldsAreUsableZeroValueSafe(t *testing.T) {
	var mu sync.Mutex
	in := workerInputs{mu: &mu}
	in.mu.Lock()
	in.mu.Unlock()
}
