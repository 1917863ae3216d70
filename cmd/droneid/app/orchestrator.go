package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/skywatch/droneid/internal/decode"
	"github.com/skywatch/droneid/internal/scanner"
	"github.com/skywatch/droneid/internal/sdr"
	"github.com/skywatch/droneid/internal/storage"
)

const (
	// joinTimeout bounds how long shutdown waits for the capture
	// goroutine and each worker before moving on.
	joinTimeout = 10 * time.Second

	// receiveErrorsThreshold defines the number of consecutive receive
	// errors allowed before the capture loop gives up.
	receiveErrorsThreshold = 5
)

// ErrTooManyReceiveErrors is returned when the receiver keeps failing.
var ErrTooManyReceiveErrors = errors.New("too many consecutive receive errors")

// WithStore sets the session store for decoded records.
func WithStore(store storage.Store, receiver string) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
		o.receiver = receiver
	}
}

// WithOutput redirects the JSON record stream, which defaults to stdout.
func WithOutput(w io.Writer) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.emitter = NewEmitter(w)
	}
}

// detection is one worker's verdict on one capture, fed back to the
// capture loop to drive frequency locking.
type detection struct {
	frequency float64
	found     bool
}

// Orchestrator runs the receive pipeline: one capture goroutine owning
// the receiver and the scanner, plus a pool of decode workers. Results
// are aggregated into session statistics and optionally persisted.
type Orchestrator struct {
	config *Config
	recv   sdr.Receiver
	logger *slog.Logger

	store    storage.Store
	receiver string
	emitter  *Emitter

	stats decode.Stats
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(config *Config, recv sdr.Receiver, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		config:   config,
		recv:     recv,
		logger:   logger,
		receiver: "replay",
		emitter:  NewEmitter(os.Stdout),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Stats returns the session totals accumulated so far. Call after Run
// has returned.
func (o *Orchestrator) Stats() decode.Stats {
	return o.stats
}

// Run captures and decodes until the context is cancelled or the sample
// source is exhausted, then logs the session statistics.
func (o *Orchestrator) Run(ctx context.Context) error {
	var sessionID string
	if o.store != nil {
		id, err := o.store.CreateSession(ctx, o.receiver, o.config.Receiver)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = id
		o.logger.Info("session created", slog.String("sessionID", sessionID))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := o.config.Receiver.Workers
	captures := make(chan *sdr.Capture, workers)
	detections := make(chan detection, 4*workers)
	results := make(chan *decode.Result, 4*workers)

	var collectorWG sync.WaitGroup
	collectorWG.Add(1)
	go func() {
		defer collectorWG.Done()
		o.collect(sessionID, results)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func(id int) {
			defer workerWG.Done()
			o.worker(id, captures, detections, results)
		}(i)
	}

	captureErr := o.capture(ctx, captures, detections)

	// One sentinel per worker, then close for any stragglers.
	for i := 0; i < workers; i++ {
		captures <- nil
	}
	close(captures)

	if !waitWithTimeout(&workerWG, joinTimeout) {
		o.logger.Warn("workers did not stop in time, abandoning")
	}

	close(results)
	collectorWG.Wait()

	o.logger.LogAttrs(context.Background(), slog.LevelInfo, "session statistics",
		append(o.stats.LogAttrs(), slog.Float64("successRate", o.stats.SuccessRate()))...)

	return captureErr
}

// capture owns the receiver and the authoritative scanner. It hops or
// holds frequency based on worker feedback and feeds fixed-duration
// captures to the workers.
func (o *Orchestrator) capture(ctx context.Context, captures chan<- *sdr.Capture, detections <-chan detection) error {
	scan := scanner.New(o.config.Receiver.Band24Only)
	numSamples := scanner.SampleCount(o.config.Receiver.Duration, o.config.Receiver.SampleRate)

	var receiveErrors int
	for {
		if ctx.Err() != nil {
			return nil
		}

		o.drainDetections(scan, detections)

		frequency := scan.NextChannel()
		if err := o.recv.SetFrequency(frequency); err != nil {
			return fmt.Errorf("setting frequency: %w", err)
		}

		if scan.State() == scanner.Scanning {
			o.logger.Debug("scanning", slog.String("frequency", formatFrequency(frequency)))
		}

		c, err := o.recv.ReceiveSamples(ctx, numSamples)
		switch {
		case errors.Is(err, sdr.ErrEndOfStream):
			o.logger.Info("sample stream exhausted")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			receiveErrors++
			o.logger.Warn("receive failed", slog.String("error", err.Error()))
			if receiveErrors >= receiveErrorsThreshold {
				return fmt.Errorf("%w: %w", ErrTooManyReceiveErrors, err)
			}
			continue
		}
		receiveErrors = 0

		select {
		case captures <- c:
		case <-ctx.Done():
			return nil
		}
	}
}

// drainDetections applies all pending worker feedback to the scanner.
func (o *Orchestrator) drainDetections(scan *scanner.Scanner, detections <-chan detection) {
	for {
		select {
		case d := <-detections:
			o.applyDetection(scan, d)
		default:
			return
		}
	}
}

func (o *Orchestrator) applyDetection(scan *scanner.Scanner, d detection) {
	if d.found && scan.State() == scanner.Scanning {
		scan.Lock(d.frequency)
		o.logger.Info("locked, continuous monitoring",
			slog.String("frequency", formatFrequency(d.frequency)))
		return
	}

	wasLocked := scan.State() == scanner.Locked
	scan.RecordDetection(d.found)

	if wasLocked && scan.State() == scanner.Scanning {
		o.logger.Info("no detections on locked frequency, resuming scan",
			slog.Int("captures", scanner.UnlockThreshold))
	}
}

// worker decodes captures until it reads a sentinel. Each worker owns
// its own pipeline and an advisory scanner mirroring the lock state it
// has observed; the capture goroutine's scanner stays authoritative.
func (o *Orchestrator) worker(id int, captures <-chan *sdr.Capture, detections chan<- detection, results chan<- *decode.Result) {
	logger := o.logger.With(slog.Int("worker", id))

	pipeline := decode.NewPipeline(o.config.Receiver.PacketKind(), o.config.Receiver.Legacy,
		decode.WithLogger(logger))
	advisory := scanner.New(o.config.Receiver.Band24Only)

	for c := range captures {
		if c == nil {
			break
		}

		res := pipeline.Process(c)

		for _, rec := range res.Records {
			if err := o.emitter.Emit(rec); err != nil {
				logger.Error(err.Error())
			}
		}

		detections <- detection{frequency: res.Frequency, found: res.Detected}
		results <- res

		if res.Detected && advisory.State() == scanner.Scanning {
			advisory.Lock(res.Frequency)
			logger.Debug("worker view locked", slog.String("frequency", formatFrequency(res.Frequency)))
		} else {
			advisory.RecordDetection(res.Detected)
		}
	}

	logger.Debug("worker stopped")
}

// collect aggregates worker results and persists decoded records.
func (o *Orchestrator) collect(sessionID string, results <-chan *decode.Result) {
	for res := range results {
		o.stats.Merge(res.Stats)

		if o.store == nil || len(res.Records) == 0 {
			continue
		}
		if err := o.store.StoreRecords(context.Background(), sessionID, res.Records); err != nil {
			o.logger.Error(fmt.Sprintf("storing records: %s", err.Error()))
		}
	}
}

func formatFrequency(hz float64) string {
	value, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%.4g %sHz", value, suffix)
}

func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
