package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mls_syncer/internal/domain"
)

type stubSyncer struct {
	mu       sync.Mutex
	triggers []domain.Trigger
	records  []domain.RemoteListing
	block    chan struct{}
}

func (f *stubSyncer) Sync(ctx context.Context, trigger domain.Trigger) (*domain.SyncStats, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &domain.SyncStats{Trigger: trigger}, nil
}

func (f *stubSyncer) SyncRecords(ctx context.Context, trigger domain.Trigger, records []domain.RemoteListing) (*domain.SyncStats, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	f.records = records
	f.mu.Unlock()
	return &domain.SyncStats{Trigger: trigger, Fetched: len(records)}, nil
}

func (f *stubSyncer) seen() []domain.Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Trigger, len(f.triggers))
	copy(out, f.triggers)
	return out
}

type SchedulerTestSuite struct {
	suite.Suite
	sched  *Scheduler
	syncer *stubSyncer
}

func (s *SchedulerTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.sched = New(logger)
	s.syncer = &stubSyncer{}
	s.sched.Register("mls-a", s.syncer, domain.CadenceHourly)
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) TestTriggerNow() {
	stats, err := s.sched.TriggerNow(context.Background(), "mls-a")

	s.NoError(err)
	s.Equal(domain.TriggerManual, stats.Trigger)
	s.Equal([]domain.Trigger{domain.TriggerManual}, s.syncer.seen())
}

func (s *SchedulerTestSuite) TestTriggerNow_UnknownSource() {
	_, err := s.sched.TriggerNow(context.Background(), "nope")

	s.Error(err)
	s.Contains(err.Error(), "unknown source")
}

func (s *SchedulerTestSuite) TestHandleWebhook_PassesRecords() {
	records := []domain.RemoteListing{{ListingKey: "K1"}}

	stats, err := s.sched.HandleWebhook(context.Background(), "mls-a", records)

	s.NoError(err)
	s.Equal(domain.TriggerWebhook, stats.Trigger)
	s.Equal(1, stats.Fetched)
	s.Equal(records, s.syncer.records)
}

func (s *SchedulerTestSuite) TestRun_RejectsConcurrentRuns() {
	s.syncer.block = make(chan struct{})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		_, err := s.sched.TriggerNow(context.Background(), "mls-a")
		s.NoError(err)
	}()

	<-started
	s.Eventually(func() bool {
		return len(s.syncer.seen()) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.sched.TriggerNow(context.Background(), "mls-a")
	s.ErrorIs(err, domain.ErrSyncRunning)

	close(s.syncer.block)
	<-done

	// The guard is released once the first run finishes.
	_, err = s.sched.TriggerNow(context.Background(), "mls-a")
	s.NoError(err)
}

func (s *SchedulerTestSuite) TestSchedule_RealtimeInstallsNoTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fast := &stubSyncer{}
	s.sched.Register("mls-rt", fast, domain.CadenceRealtime)

	go func() {
		_ = s.sched.Start(ctx)
	}()

	// A realtime source only runs when pushed to.
	time.Sleep(50 * time.Millisecond)
	s.Empty(fast.seen())

	_, err := s.sched.HandleWebhook(ctx, "mls-rt", nil)
	s.NoError(err)
	s.Equal([]domain.Trigger{domain.TriggerWebhook}, fast.seen())
}

func (s *SchedulerTestSuite) TestCadenceIntervals() {
	cases := []struct {
		cadence  domain.Cadence
		interval time.Duration
		polls    bool
	}{
		{domain.CadenceRealtime, 0, false},
		{domain.CadenceEvery15m, 15 * time.Minute, true},
		{domain.CadenceHourly, time.Hour, true},
		{domain.CadenceDaily, 24 * time.Hour, true},
	}

	for _, tc := range cases {
		interval, polls := tc.cadence.Interval()
		s.Equal(tc.interval, interval)
		s.Equal(tc.polls, polls)
	}
}

func (s *SchedulerTestSuite) TestSchedule_ReplacesTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = s.sched.Start(ctx)
	}()

	s.Eventually(func() bool {
		return len(s.syncer.seen()) == 1
	}, time.Second, 5*time.Millisecond)

	// Wait for the run guard to release before rescheduling, so the new
	// timer's immediate run isn't skipped as re-entrant.
	s.Eventually(func() bool {
		s.sched.mu.Lock()
		defer s.sched.mu.Unlock()
		return !s.sched.sources["mls-a"].running
	}, time.Second, 5*time.Millisecond)

	s.sched.mu.Lock()
	oldStop := s.sched.sources["mls-a"].stop
	s.sched.mu.Unlock()
	s.Require().NotNil(oldStop)

	s.NoError(s.sched.Schedule("mls-a", domain.CadenceDaily))

	// The replaced timer's stop channel is closed, so its goroutine can
	// never fire again.
	select {
	case <-oldStop:
	default:
		s.Fail("old timer still armed after reschedule")
	}

	s.sched.mu.Lock()
	e := s.sched.sources["mls-a"]
	s.Equal(domain.CadenceDaily, e.cadence)
	s.NotNil(e.stop)
	s.NotEqual(oldStop, e.stop)
	s.sched.mu.Unlock()

	// The replacement timer runs once immediately.
	s.Eventually(func() bool {
		return len(s.syncer.seen()) == 2
	}, time.Second, 5*time.Millisecond)

	// Switching to realtime removes the timer entirely.
	s.NoError(s.sched.Schedule("mls-a", domain.CadenceRealtime))
	s.sched.mu.Lock()
	s.Nil(s.sched.sources["mls-a"].stop)
	s.sched.mu.Unlock()
}

func (s *SchedulerTestSuite) TestCancelStopsTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = s.sched.Start(ctx)
	}()

	// The hourly source runs once immediately on Start.
	s.Eventually(func() bool {
		return len(s.syncer.seen()) == 1
	}, time.Second, 5*time.Millisecond)

	s.sched.Cancel("mls-a")

	// Manual triggers keep working after the timer is gone.
	_, err := s.sched.TriggerNow(ctx, "mls-a")
	s.NoError(err)
}
