package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/droneid/internal/ofdm"
	"github.com/skywatch/droneid/internal/scanner"
	"github.com/skywatch/droneid/internal/sdr"
	"github.com/skywatch/droneid/internal/storage"
)

func testConfig(workers int) *Config {
	return &Config{
		Receiver: ReceiverConfig{
			ReplayFile: "test.iq",
			SampleRate: ofdm.SampleRate,
			Duration:   0.002,
			Workers:    workers,
			Band24Only: true,
			PacketType: "droneid",
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietBlocks(n int) [][]complex64 {
	blocks := make([][]complex64, n)
	for i := range blocks {
		blocks[i] = make([]complex64, 4096)
	}
	return blocks
}

func TestRunExhaustsQuietStream(t *testing.T) {
	recv := sdr.NewStaticReceiver(ofdm.SampleRate, quietBlocks(3)...)
	orch := NewOrchestrator(testConfig(1), recv, testLogger(), WithOutput(io.Discard))

	require.NoError(t, orch.Run(context.Background()))

	assert.Equal(t, 3, orch.Stats().Captures)
	assert.Zero(t, orch.Stats().Bursts)

	// Three captures plus the retune preceding the end-of-stream read,
	// all hopping through the 2.4 GHz plan in order.
	require.Len(t, recv.Retunes, 4)
	assert.Equal(t, scanner.Channels24GHz[:4], recv.Retunes)
}

func TestRunMultipleWorkers(t *testing.T) {
	recv := sdr.NewStaticReceiver(ofdm.SampleRate, quietBlocks(8)...)
	orch := NewOrchestrator(testConfig(3), recv, testLogger(), WithOutput(io.Discard))

	require.NoError(t, orch.Run(context.Background()))
	assert.Equal(t, 8, orch.Stats().Captures)
}

func TestRunCreatesSession(t *testing.T) {
	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "session.sqlite"))
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	config := testConfig(1)
	recv := sdr.NewStaticReceiver(ofdm.SampleRate, quietBlocks(1)...)
	orch := NewOrchestrator(config, recv, testLogger(),
		WithOutput(io.Discard), WithStore(store, "replay"))

	require.NoError(t, orch.Run(context.Background()))

	sessions, err := store.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "replay", sessions[0].Receiver)
}

// funcReceiver adapts closures to the Receiver interface for tests.
type funcReceiver struct {
	receive func(ctx context.Context, n int) (*sdr.Capture, error)
}

func (f *funcReceiver) SetFrequency(float64) error { return nil }
func (f *funcReceiver) Close() error               { return nil }

func (f *funcReceiver) ReceiveSamples(ctx context.Context, n int) (*sdr.Capture, error) {
	return f.receive(ctx, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	recv := &funcReceiver{receive: func(ctx context.Context, _ int) (*sdr.Capture, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	orch := NewOrchestrator(testConfig(1), recv, testLogger(), WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop after cancellation")
	}
}

func TestRunGivesUpOnPersistentReceiveErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	recv := &funcReceiver{receive: func(context.Context, int) (*sdr.Capture, error) {
		calls++
		return nil, boom
	}}

	orch := NewOrchestrator(testConfig(1), recv, testLogger(), WithOutput(io.Discard))

	err := orch.Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManyReceiveErrors)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, calls)
}
