package archiver_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelwatch/internal/archiver"
)

// mockArchiver records the reference dates it was called with.
type mockArchiver struct {
	mu    sync.Mutex
	days  []time.Time
	count int
	err   error
}

func (m *mockArchiver) ArchiveExpired(_ context.Context, today time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days = append(m.days, today)
	return m.count, m.err
}

func (m *mockArchiver) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.days)
}

var _ archiver.Archiver = (*mockArchiver)(nil)

func fixedClock() time.Time {
	return time.Date(2026, 5, 9, 23, 15, 0, 0, time.UTC)
}

func TestSweeper_RunOnce_UsesCalendarDate(t *testing.T) {
	a := &mockArchiver{count: 3}
	var buf bytes.Buffer
	s := archiver.NewSweeper(a, time.Hour, slog.New(slog.NewJSONHandler(&buf, nil))).WithClock(fixedClock)

	n, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, a.days, 1)
	assert.Equal(t, time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), a.days[0])
	assert.Contains(t, buf.String(), `"archived":3`)
	assert.Contains(t, buf.String(), `"today":"2026-05-09"`)
}

func TestSweeper_RunOnce_ReportsPartialFailure(t *testing.T) {
	a := &mockArchiver{count: 1, err: errors.New("one record failed")}
	var buf bytes.Buffer
	s := archiver.NewSweeper(a, time.Hour, slog.New(slog.NewJSONHandler(&buf, nil))).WithClock(fixedClock)

	n, err := s.RunOnce(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestSweeper_Run_TicksUntilCancelled(t *testing.T) {
	a := &mockArchiver{}
	s := archiver.NewSweeper(a, 10*time.Millisecond, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return a.calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSweeper_Run_ErrorsDoNotStopLoop(t *testing.T) {
	a := &mockArchiver{err: errors.New("store unavailable")}
	s := archiver.NewSweeper(a, 10*time.Millisecond, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	assert.Eventually(t, func() bool { return a.calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSweeper_Run_DisabledInterval(t *testing.T) {
	a := &mockArchiver{}
	s := archiver.NewSweeper(a, 0, nil)

	err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, a.calls())
}
