package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/procsense/procsense/internal/config"
	"github.com/procsense/procsense/internal/models"
	"github.com/procsense/procsense/pkg/process"
	"github.com/procsense/procsense/pkg/window"
)

// Store is the persistence the tracker writes to.
type Store interface {
	CreateBatch(samples []*models.ActivitySample) error
	CreateErrorLog(errorLog *models.ErrorLog) error
	DeleteOldSamples(before time.Time) (int64, error)
}

// pruneInterval is how often samples older than the retention are deleted.
const pruneInterval = time.Hour

// Stats counts what the tracker has done since it was created.
type Stats struct {
	Snapshots      int `json:"snapshots"`
	SnapshotSize   int `json:"snapshot_size"`
	Started        int `json:"started"`
	Exited         int `json:"exited"`
	WindowSamples  int `json:"window_samples"`
	NoActiveWindow int `json:"no_active_window"`
	SelfFocus      int `json:"self_focus"`
	SnapshotHits   int `json:"snapshot_hits"`
	Resolves       int `json:"resolves"`
	Flushes        int `json:"flushes"`
	Pruned         int `json:"pruned"`
	Errors         int `json:"errors"`
}

// Focus is the process that owned the foreground window at the last sample.
type Focus struct {
	Record        process.Record `json:"process"`
	Title         string         `json:"title"`
	DisplayServer string         `json:"display_server"`
	Since         time.Time      `json:"since"`
}

// Service polls the process table on a coarse interval and the foreground
// window on a fine one, attributing the time between window samples to the
// process instance that owned the window.
type Service struct {
	config *config.Config
	repo   Store
	source process.Source
	sensor window.Sensor
	now    func() time.Time
	self   uint32

	mu        sync.Mutex
	snapshot  *process.Snapshot
	current   *Focus
	lastTick  time.Time
	pending   map[process.Identity]*models.ActivitySample
	order     []process.Identity
	stats     Stats
	lastError string

	stopChan chan struct{}
	running  bool
}

// NewService returns a stopped tracker writing to repo.
func NewService(cfg *config.Config, repo Store, source process.Source, sensor window.Sensor) *Service {
	return &Service{
		config:   cfg,
		repo:     repo,
		source:   source,
		sensor:   sensor,
		now:      time.Now,
		self:     uint32(os.Getpid()),
		pending:  make(map[process.Identity]*models.ActivitySample),
		stopChan: make(chan struct{}),
	}
}

// Start samples until ctx is cancelled or Stop is called, then flushes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	t := s.config.Tracker
	log.Printf("Starting tracker: snapshot every %v, window every %v, flush every %v",
		t.SnapshotInterval, t.WindowInterval, t.FlushInterval)

	snapshotTicker := time.NewTicker(t.SnapshotInterval)
	defer snapshotTicker.Stop()
	windowTicker := time.NewTicker(t.WindowInterval)
	defer windowTicker.Stop()
	flushTicker := time.NewTicker(t.FlushInterval)
	defer flushTicker.Stop()

	var pruneC <-chan time.Time
	if s.config.Database.Retention > 0 {
		pruneTicker := time.NewTicker(pruneInterval)
		defer pruneTicker.Stop()
		pruneC = pruneTicker.C
		s.prune()
	}

	n := s.RefreshSnapshot()
	log.Printf("Initial snapshot: %d processes", n)
	if err := s.SampleOnce(); err != nil {
		s.storeError(models.ErrorKindWindow, err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracker stopped by context")
			s.shutdown()
			return ctx.Err()

		case <-s.stopChan:
			log.Println("Tracker stopped")
			s.shutdown()
			return nil

		case <-snapshotTicker.C:
			s.RefreshSnapshot()

		case <-windowTicker.C:
			if err := s.SampleOnce(); err != nil {
				s.storeError(models.ErrorKindWindow, err)
			}

		case <-flushTicker.C:
			if err := s.Flush(); err != nil {
				s.storeError(models.ErrorKindFlush, err)
			}

		case <-pruneC:
			s.prune()
		}
	}
}

// Stop ends a running Start. It does nothing when the tracker is not running.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		select {
		case <-s.stopChan:
		default:
			close(s.stopChan)
		}
	}
}

// IsRunning reports whether Start is in progress.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) shutdown() {
	s.mu.Lock()
	s.credit(s.now())
	s.current = nil
	s.snapshot.Release()
	s.snapshot = nil
	s.mu.Unlock()

	if err := s.Flush(); err != nil {
		s.storeError(models.ErrorKindFlush, err)
	}
}

// RefreshSnapshot replaces the tracker's process snapshot and releases the
// previous one. It returns the number of records captured.
func (s *Service) RefreshSnapshot() int {
	snap := process.Capture(s.source)
	ids := snap.Identities()

	s.mu.Lock()
	old := s.snapshot
	s.snapshot = snap
	s.stats.Snapshots++
	s.stats.SnapshotSize = snap.Len()
	if old != nil {
		prev := old.Identities()
		for id := range ids {
			if _, ok := prev[id]; !ok {
				s.stats.Started++
			}
		}
		for id := range prev {
			if _, ok := ids[id]; !ok {
				s.stats.Exited++
			}
		}
	}
	s.mu.Unlock()

	old.Release()
	return snap.Len()
}

// SampleOnce credits the time since the previous sample to the previous
// focus, then reads the foreground window.
func (s *Service) SampleOnce() error {
	sample, err := window.Checked(s.sensor.CaptureActiveWindow())
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credit(now)
	s.lastTick = now

	if err != nil {
		s.current = nil
		if errors.Is(err, window.ErrNoActiveWindow) {
			s.stats.NoActiveWindow++
			return nil
		}
		return fmt.Errorf("failed to capture active window: %w", err)
	}
	s.stats.WindowSamples++

	// Time spent looking at our own output is not tracked.
	if sample.PID == s.self {
		s.current = nil
		s.stats.SelfFocus++
		return nil
	}

	rec := s.lookup(sample.PID)

	if s.current == nil || s.current.Record.Key() != rec.Key() {
		log.Printf("Focus: %s (pid %d) %q", displayName(rec), rec.PID, sample.Title)
		s.current = &Focus{Record: rec, Since: now}
	}
	s.current.Title = sample.Title
	s.current.DisplayServer = sample.DisplayServer

	return nil
}

// lookup finds pid in the current snapshot, resolving it alone when it
// started after the snapshot was taken. Callers hold s.mu.
func (s *Service) lookup(pid uint32) process.Record {
	if rec, ok := s.snapshot.Lookup(pid); ok {
		s.stats.SnapshotHits++
		return rec
	}
	s.stats.Resolves++
	return process.Resolve(s.source, pid)
}

// credit attributes the span since the last sample to the current focus.
// Gaps longer than two window intervals, such as a suspended machine, are
// capped. Callers hold s.mu.
func (s *Service) credit(now time.Time) {
	if s.current == nil || s.lastTick.IsZero() {
		return
	}
	d := now.Sub(s.lastTick)
	if maxGap := 2 * s.config.Tracker.WindowInterval; d > maxGap {
		d = maxGap
	}
	if d <= 0 {
		return
	}

	rec := s.current.Record
	key := rec.Key()
	p, ok := s.pending[key]
	if !ok {
		p = &models.ActivitySample{
			Timestamp:   s.lastTick.UTC(),
			ProcessKey:  rec.UniqueKey(),
			PID:         rec.PID,
			ProcessName: displayName(rec),
			ExePath:     rec.ExePath,
		}
		s.pending[key] = p
		s.order = append(s.order, key)
	}
	p.DurationMs += d.Milliseconds()
	p.WindowTitle = s.current.Title
	p.DisplayServer = s.current.DisplayServer
}

// Flush writes the accumulated samples.
func (s *Service) Flush() error {
	s.mu.Lock()
	batch := make([]*models.ActivitySample, 0, len(s.order))
	for _, key := range s.order {
		if p := s.pending[key]; p.DurationMs > 0 {
			batch = append(batch, p)
		}
	}
	s.pending = make(map[process.Identity]*models.ActivitySample)
	s.order = nil
	s.stats.Flushes++
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := s.repo.CreateBatch(batch); err != nil {
		return fmt.Errorf("failed to save %d samples: %w", len(batch), err)
	}
	return nil
}

// prune deletes samples older than the configured retention.
func (s *Service) prune() {
	retention := s.config.Database.Retention
	if retention <= 0 {
		return
	}
	n, err := s.repo.DeleteOldSamples(s.now().Add(-retention).UTC())
	if err != nil {
		s.storeError(models.ErrorKindRetention, fmt.Errorf("failed to prune samples: %w", err))
		return
	}

	s.mu.Lock()
	s.stats.Pruned += int(n)
	s.mu.Unlock()
	if n > 0 {
		log.Printf("Pruned %d samples older than %v", n, retention)
	}
}

// storeError records err, skipping repeats of the previous message.
func (s *Service) storeError(kind string, err error) {
	s.mu.Lock()
	s.stats.Errors++
	repeat := err.Error() == s.lastError
	s.lastError = err.Error()
	s.mu.Unlock()

	if repeat {
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: s.now().UTC(),
		Kind:      kind,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}

// Current returns the focus seen at the last sample.
func (s *Service) Current() (Focus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Focus{}, false
	}
	return *s.current, true
}

// Stats returns a copy of the counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func displayName(rec process.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("pid-%d", rec.PID)
}
