package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 5 * time.Second
)

// Options configures a Runner.
type Options struct {
	Source       Source
	EventStore   storage.EventStore
	TripStore    storage.TripStore
	VehicleStore storage.VehicleStore
	Logger       zerolog.Logger

	// BatchSize is the number of buffered events that triggers a flush.
	// Zero means the default.
	BatchSize int

	// FlushInterval bounds how long a partial batch can wait before it
	// is flushed. Zero means the default.
	FlushInterval time.Duration
}

// Runner consumes frames from a source and persists them. Events are
// buffered and written in batches; trips and vehicles are written as
// they arrive. Re-delivered frames are tolerated: duplicate-key
// errors from the stores are logged and skipped.
type Runner struct {
	opts  Options
	buf   []*domain.Event
	stats RunStats
}

// RunStats counts what a run persisted.
type RunStats struct {
	EventsStored   int
	TripsStored    int
	VehiclesStored int
	FramesSkipped  int
}

// NewRunner returns a runner over the given source and stores.
func NewRunner(opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	return &Runner{opts: opts}
}

type readResult struct {
	frame *Frame
	err   error
}

// Run consumes the source until it ends or ctx is cancelled. The
// buffered batch is flushed before returning, including on
// cancellation. Frames are read on a separate goroutine so the flush
// ticker fires even while the source blocks waiting for the next frame.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	readCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()

	frames := make(chan readResult)
	go func() {
		defer close(frames)
		for {
			frame, err := r.opts.Source.Next(readCtx)
			select {
			case frames <- readResult{frame, err}:
			case <-readCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			err := r.flush(context.WithoutCancel(ctx))
			if err != nil {
				return r.stats, err
			}
			return r.stats, ctx.Err()
		case <-ticker.C:
			if err := r.flush(ctx); err != nil {
				return r.stats, err
			}
		case res, ok := <-frames:
			if !ok {
				// Reader exited on cancellation; wait for ctx.Done.
				frames = nil
				continue
			}
			if res.err != nil {
				flushErr := r.flush(context.WithoutCancel(ctx))
				if errors.Is(res.err, io.EOF) || errors.Is(res.err, context.Canceled) {
					return r.stats, flushErr
				}
				return r.stats, res.err
			}
			if err := r.handle(ctx, res.frame); err != nil {
				return r.stats, err
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, frame *Frame) error {
	switch frame.Type {
	case FrameEvent:
		if frame.Event == nil {
			r.skip("event frame without payload")
			return nil
		}
		r.buf = append(r.buf, frame.Event.Event())
		if len(r.buf) >= r.opts.BatchSize {
			return r.flush(ctx)
		}
	case FrameTrip:
		if frame.Trip == nil {
			r.skip("trip frame without payload")
			return nil
		}
		trip := &domain.Trip{
			TripID:    frame.Trip.TripID,
			VehicleID: frame.Trip.VehicleID,
			StartTime: frame.Trip.StartTime.UTC(),
			EndTime:   frame.Trip.EndTime.UTC(),
		}
		if err := r.opts.TripStore.Insert(ctx, trip); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				r.skip(fmt.Sprintf("duplicate trip %s", trip.TripID))
				return nil
			}
			return fmt.Errorf("insert trip %s: %w", trip.TripID, err)
		}
		r.stats.TripsStored++
	case FrameVehicle:
		if frame.Vehicle == nil {
			r.skip("vehicle frame without payload")
			return nil
		}
		vehicle := &domain.Vehicle{
			VehicleID: frame.Vehicle.VehicleID,
			DriverID:  frame.Vehicle.DriverID,
		}
		if err := r.opts.VehicleStore.Insert(ctx, vehicle); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				r.skip(fmt.Sprintf("duplicate vehicle %s", vehicle.VehicleID))
				return nil
			}
			return fmt.Errorf("insert vehicle %s: %w", vehicle.VehicleID, err)
		}
		r.stats.VehiclesStored++
	default:
		r.skip(fmt.Sprintf("unknown frame type %q", frame.Type))
	}
	return nil
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}
	batch := r.buf
	r.buf = nil

	if err := r.opts.EventStore.InsertBulk(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.skip(fmt.Sprintf("duplicate events in batch of %d", len(batch)))
			return nil
		}
		return fmt.Errorf("insert event batch: %w", err)
	}
	r.stats.EventsStored += len(batch)
	r.opts.Logger.Debug().Int("events", len(batch)).Msg("flushed event batch")
	return nil
}

func (r *Runner) skip(reason string) {
	r.stats.FramesSkipped++
	r.opts.Logger.Warn().Str("reason", reason).Msg("skipped frame")
}
