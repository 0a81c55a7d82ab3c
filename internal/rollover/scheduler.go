package rollover

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wagerboard/internal/board"
	"wagerboard/internal/clock"
	"wagerboard/internal/fetch"
	"wagerboard/internal/observability"
	"wagerboard/internal/store"
)

// Fetcher pulls wager records for an inclusive date range.
type Fetcher interface {
	Fetch(ctx context.Context, from, to time.Time) ([]board.WagerRecord, []byte, error)
}

// Lifecycle event kinds.
const (
	EventRollover = "rollover"
	EventRefresh  = "refresh"
)

// LifecycleEvent describes a completed rollover or refresh cycle.
type LifecycleEvent struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	Boundary  time.Time `json:"boundary"`
	Entries   int       `json:"entries"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives lifecycle events. Implementations must not block the
// scheduler; publish failures are theirs to log.
type EventSink interface {
	Publish(ctx context.Context, ev LifecycleEvent)
}

// Deps wires a Scheduler. Clock, Events, and Metrics are optional; intervals
// default to one minute (rollover check) and five minutes (refresh).
type Deps struct {
	Clock           clock.Clock
	Schedule        clock.Schedule
	Records         *store.Records
	Fetcher         Fetcher
	Events          EventSink
	Metrics         *observability.Metrics
	Logger          zerolog.Logger
	CheckInterval   time.Duration
	RefreshInterval time.Duration
}

// Scheduler owns the weekly rollover state machine and the periodic refresh.
// Two repeating tasks: a short tick that checks whether the weekly boundary
// has been crossed and, exactly once per boundary, archives the current
// leaderboard; and a longer tick that refetches and rebuilds the current
// leaderboard without touching archive or marker.
type Scheduler struct {
	clk      clock.Clock
	schedule clock.Schedule
	records  *store.Records
	fetcher  Fetcher
	events   EventSink
	metrics  *observability.Metrics
	log      zerolog.Logger

	checkEvery   time.Duration
	refreshEvery time.Duration

	// In-progress guard: a tick firing while a rollover is mid-flight
	// must no-op, never run a second rollover concurrently.
	rolling atomic.Bool
}

func New(d Deps) *Scheduler {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.CheckInterval <= 0 {
		d.CheckInterval = time.Minute
	}
	if d.RefreshInterval <= 0 {
		d.RefreshInterval = 5 * time.Minute
	}
	return &Scheduler{
		clk:          d.Clock,
		schedule:     d.Schedule,
		records:      d.Records,
		fetcher:      d.Fetcher,
		events:       d.Events,
		metrics:      d.Metrics,
		log:          d.Logger,
		checkEvery:   d.CheckInterval,
		refreshEvery: d.RefreshInterval,
	}
}

// Run drives both tickers until ctx is cancelled. An initial refresh is
// performed first so the leaderboard is served right after startup.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.RefreshOnce(ctx, s.clk.Now()); err != nil {
		s.log.Warn().Err(err).Msg("initial refresh failed, next tick will retry")
	}

	checkTicker := time.NewTicker(s.checkEvery)
	defer checkTicker.Stop()
	refreshTicker := time.NewTicker(s.refreshEvery)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-checkTicker.C:
			if err := s.CheckOnce(ctx, s.clk.Now()); err != nil {
				s.log.Error().Err(err).Msg("rollover check failed")
			}

		case <-refreshTicker.C:
			if err := s.RefreshOnce(ctx, s.clk.Now()); err != nil {
				s.log.Warn().Err(err).Msg("refresh failed, current leaderboard left as is")
			}
		}
	}
}

// CheckOnce runs a single pass of the rollover check at the given instant.
// Exported so tests can step virtual time tick by tick.
func (s *Scheduler) CheckOnce(ctx context.Context, now time.Time) error {
	if !s.rolling.CompareAndSwap(false, true) {
		s.skip("in_progress")
		return nil
	}
	defer s.rolling.Store(false)

	if s.metrics != nil {
		s.metrics.RolloverChecks.Inc()
	}

	boundary := s.schedule.LastBoundary(now)
	marker, err := s.records.Marker(ctx)
	if err != nil {
		s.skip("marker_error")
		return fmt.Errorf("read reset marker: %w", err)
	}

	// First run: record the marker without rolling. The boundary behind us
	// predates the service, so there is nothing meaningful to archive and a
	// destructive reset on a fresh deploy would be a surprise.
	if marker.IsZero() {
		if err := s.records.SetMarker(ctx, now); err != nil {
			s.skip("marker_error")
			return fmt.Errorf("bootstrap reset marker: %w", err)
		}
		s.skip("bootstrap")
		s.log.Info().Time("boundary", boundary).Msg("reset marker bootstrapped")
		return nil
	}

	// The marker is the sole duplicate-rollover guard: once it sits at or
	// past the boundary, every further tick this week is a no-op.
	if !marker.Before(boundary) {
		s.skip("not_due")
		return nil
	}

	s.roll(ctx, now, boundary)
	return nil
}

// roll archives the current leaderboard, starts the new week with an
// immediate fetch, and advances the marker. The marker advances even when
// the fetch or the archival write fails: a missing data point at reset time
// beats repeating destructive archival on every tick.
func (s *Scheduler) roll(ctx context.Context, now, boundary time.Time) {
	start := time.Now()
	s.log.Info().Time("boundary", boundary).Msg("weekly rollover started")

	cur, err := s.records.Current(ctx)
	switch {
	case err != nil:
		// Current snapshot unreadable: skip the archive step rather than
		// overwrite the archive with garbage.
		s.storeFailure(store.KeyCurrent, err)
		s.log.Error().Err(err).Msg("read current leaderboard failed, archive step skipped")
	case cur != nil:
		if err := s.records.SetArchived(ctx, *cur); err != nil {
			s.storeFailure(store.KeyArchived, err)
			s.log.Error().Err(err).Msg("archive write failed, current leaderboard kept")
		} else if err := s.records.ClearCurrent(ctx); err != nil {
			s.storeFailure(store.KeyCurrent, err)
			s.log.Error().Err(err).Msg("clear current leaderboard failed")
		}
	}

	entries := 0
	if err := s.refresh(ctx, now); err != nil {
		s.log.Warn().Err(err).Msg("rollover fetch failed, next refresh tick will retry")
	} else if snap, err := s.records.Current(ctx); err == nil && snap != nil {
		entries = len(snap.Entries)
	}

	// Record the tick time, not the theoretical boundary, so a slight shift
	// in the boundary computation between ticks cannot re-trigger the week.
	if err := s.records.SetMarker(ctx, now); err != nil {
		s.storeFailure(store.KeyMarker, err)
		s.log.Error().Err(err).Msg("advance reset marker failed")
	} else if s.metrics != nil {
		s.metrics.MarkerTimestamp.Set(float64(now.Unix()))
	}

	if s.metrics != nil {
		s.metrics.RolloverPerformed.Inc()
		s.metrics.RolloverDuration.Observe(time.Since(start).Seconds())
	}
	s.publish(ctx, EventRollover, boundary, entries, now)
	s.log.Info().Time("boundary", boundary).Msg("weekly rollover complete")
}

// RefreshOnce performs one fetch+rebuild cycle at the given instant. This
// path never touches the archived snapshot or the marker; on fetch failure
// the existing current leaderboard stays untouched.
func (s *Scheduler) RefreshOnce(ctx context.Context, now time.Time) error {
	return s.refresh(ctx, now)
}

func (s *Scheduler) refresh(ctx context.Context, now time.Time) error {
	boundaryEnd := s.schedule.NextBoundary(now)
	from := boundaryEnd.AddDate(0, 0, -7)

	if s.metrics != nil {
		s.metrics.FetchAttempts.Inc()
	}
	start := time.Now()
	records, raw, err := s.fetcher.Fetch(ctx, from, now)
	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.FetchErrors.WithLabelValues(fetchErrorClass(err)).Inc()
		}
		return fmt.Errorf("fetch stats: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FetchRecords.Set(float64(len(records)))
	}

	// Raw payload kept for debugging only; a failed write is not worth
	// failing the cycle over.
	if len(raw) > 0 {
		if err := s.records.SetRaw(ctx, raw); err != nil {
			s.log.Warn().Err(err).Msg("store raw stats payload failed")
		}
	}

	snap := board.Build(boundaryEnd, records)
	if err := s.records.SetCurrent(ctx, snap); err != nil {
		s.storeFailure(store.KeyCurrent, err)
		return fmt.Errorf("write current leaderboard: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StoreWrites.Inc()
	}

	s.publish(ctx, EventRefresh, boundaryEnd, len(snap.Entries), now)
	s.log.Debug().Int("entries", len(snap.Entries)).Msg("leaderboard refreshed")
	return nil
}

func (s *Scheduler) publish(ctx context.Context, kind string, boundary time.Time, entries int, now time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, LifecycleEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		Boundary:  boundary,
		Entries:   entries,
		Timestamp: now,
	})
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(kind).Inc()
	}
}

func (s *Scheduler) skip(reason string) {
	if s.metrics != nil {
		s.metrics.RolloverSkipped.WithLabelValues(reason).Inc()
	}
}

func (s *Scheduler) storeFailure(key string, _ error) {
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(key).Inc()
	}
}

func fetchErrorClass(err error) string {
	var remote *fetch.RemoteError
	switch {
	case errors.As(err, &remote):
		return "remote_rejected"
	case errors.Is(err, fetch.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, fetch.ErrInvalidResponse):
		return "invalid_response"
	default:
		return "other"
	}
}
