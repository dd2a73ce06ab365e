package coach

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/form-coach/internal/engine"
	"github.com/lowaak/form-coach/internal/history"
	"github.com/lowaak/form-coach/internal/pose"
)

// stubSource lets tests feed frames by hand.
type stubSource struct {
	frames chan pose.Frame
}

func newStubSource() *stubSource {
	return &stubSource{frames: make(chan pose.Frame, 64)}
}

func (s *stubSource) Start() error              { return nil }
func (s *stubSource) Stop() error               { return nil }
func (s *stubSource) Frames() <-chan pose.Frame { return s.frames }

type loopFixture struct {
	source  *stubSource
	model   *SessionModel
	loop    *FrameLoop
	store   *history.Store
	csvPath string
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	logChan := make(chan string, 16)
	model := NewSessionModel(logger, logChan)
	t.Cleanup(model.Shutdown)

	thresholds := map[engine.Mode]engine.Thresholds{
		engine.ModeSquat:  {DownEnterDeg: 90, UpEnterDeg: 160, DebounceFrames: 3},
		engine.ModePushUp: {DownEnterDeg: 90, UpEnterDeg: 160, DebounceFrames: 3},
		engine.ModeLunge:  {DownEnterDeg: 90, UpEnterDeg: 160, DebounceFrames: 3},
	}
	detector, err := engine.NewDetector(engine.NewCalculator(0.5), thresholds, logger)
	require.NoError(t, err)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "workout_log.csv")
	csvLog, err := NewCSVLogger(csvPath, logger)
	require.NoError(t, err)

	store, err := history.NewStore(filepath.Join(dir, "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := newStubSource()
	loop := NewFrameLoop(model, detector, source, csvLog, store, logger)
	t.Cleanup(loop.Shutdown)

	return &loopFixture{
		source:  source,
		model:   model,
		loop:    loop,
		store:   store,
		csvPath: csvPath,
	}
}

// feedAndWait pushes n frames at the given angle, waits until the loop has
// gone quiet, and returns the final snapshot. Draining by quiescence instead
// of by count keeps the helper immune to the replayed last snapshot the
// listener receives on registration.
func (f *loopFixture) feedAndWait(t *testing.T, angleDeg float64, n int) SessionSnapshot {
	t.Helper()

	snapChan := make(chan SessionSnapshot, 64)
	unregister := f.model.ListenToSnapshot(snapChan)
	defer unregister()

	for i := 0; i < n; i++ {
		frame := pose.SyntheticFrame(angleDeg, 0.9)
		frame.Timestamp = time.Now()
		f.source.frames <- frame
	}

	var last SessionSnapshot
	seen := 0
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-snapChan:
			last = snap
			seen++
		case <-time.After(200 * time.Millisecond):
			if seen >= n {
				return last
			}
		case <-deadline:
			t.Fatalf("saw %d of %d snapshots", seen, n)
		}
	}
}

func TestFrameLoop_CountsSquatAndPersists(t *testing.T) {
	f := newLoopFixture(t)

	reps := 0
	unregister := f.model.ListenToRep(func(ev engine.RepEvent) {
		reps++
		assert.Equal(t, "Squat", ev.Exercise)
		assert.Equal(t, 1, ev.Count)
	})
	defer unregister()

	f.feedAndWait(t, 170, 5)
	f.feedAndWait(t, 80, 5)
	snap := f.feedAndWait(t, 170, 5)

	assert.Equal(t, 1, snap.Status.RepCount)
	assert.Equal(t, 1, reps)
	assert.Equal(t, map[string]int{"Squat": 1}, f.model.GetSessionTotals())

	totals, err := f.store.TotalsByExercise()
	require.NoError(t, err)
	assert.Equal(t, 1, totals["Squat"])

	file, err := os.Open(f.csvPath)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Timestamp", "Exercise Name", "Repetitions"}, rows[0])
	assert.Equal(t, "Squat", rows[1][1])
	assert.Equal(t, "1", rows[1][2])
}

func TestFrameLoop_SetModeResetsCounter(t *testing.T) {
	f := newLoopFixture(t)

	f.feedAndWait(t, 170, 5)
	f.feedAndWait(t, 80, 5)
	snap := f.feedAndWait(t, 170, 5)
	require.Equal(t, 1, snap.Status.RepCount)

	f.loop.SetMode(engine.ModePushUp)
	snap = f.feedAndWait(t, 170, 3)
	assert.Equal(t, "Push-up", snap.Status.Exercise)
	assert.Equal(t, 0, snap.Status.RepCount)

	// Back to squat: the squat counter was reset by the switch away.
	f.loop.SetMode(engine.ModeSquat)
	snap = f.feedAndWait(t, 170, 3)
	assert.Equal(t, "Squat", snap.Status.Exercise)
	assert.Equal(t, 0, snap.Status.RepCount)
}

func TestFrameLoop_ResetActive(t *testing.T) {
	f := newLoopFixture(t)

	f.feedAndWait(t, 170, 5)
	f.feedAndWait(t, 80, 5)
	snap := f.feedAndWait(t, 170, 5)
	require.Equal(t, 1, snap.Status.RepCount)

	f.loop.ResetActive()
	snap = f.feedAndWait(t, 170, 3)
	assert.Equal(t, 0, snap.Status.RepCount)
}

func TestFrameLoop_SourceCloseKeepsCommandsAlive(t *testing.T) {
	f := newLoopFixture(t)

	f.feedAndWait(t, 170, 3)
	close(f.source.frames)

	// Commands must still be served after the source is gone.
	done := make(chan struct{})
	go func() {
		f.loop.SetMode(engine.ModeLunge)
		f.loop.ResetActive()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop stopped serving commands")
	}
}

func TestFrameLoop_ShutdownIsIdempotent(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Shutdown()
	f.loop.Shutdown()
}
