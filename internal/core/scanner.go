package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IvanShishkin/sigscan/internal/config"
	"github.com/IvanShishkin/sigscan/internal/filesystem"
	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/IvanShishkin/sigscan/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultEventBuffer = 64

// Fingerprinter computes content fingerprints
type Fingerprinter interface {
	Fingerprint(path string) (string, int64, error)
	Algorithm() filesystem.Algorithm
}

// Option customizes a Scanner
type Option func(*Scanner)

// WithFingerprinter replaces the hasher built from the configuration
func WithFingerprinter(f Fingerprinter) Option {
	return func(s *Scanner) {
		s.hasher = f
	}
}

// Scanner is the main scanner engine
type Scanner struct {
	config  *config.Config
	logger  *zap.Logger
	hasher  Fingerprinter
	walker  *filesystem.Walker
	metrics *scanMetrics
}

// NewScanner creates a new scanner instance
func NewScanner(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scanner{
		config: cfg,
		logger: logger,
		walker: filesystem.NewWalker(filesystem.WalkOptions{
			Exclude:        cfg.Scan.Exclude,
			FollowSymlinks: cfg.Scan.FollowSymlinks,
		}, logger),
		metrics: newScanMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hasher == nil {
		chunk, err := cfg.ChunkBytes()
		if err != nil {
			return nil, err
		}
		hasher, err := filesystem.NewHasher(filesystem.Algorithm(cfg.Algorithm), chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize hasher: %w", err)
		}
		s.hasher = hasher
	}

	return s, nil
}

// Algorithm returns the fingerprint algorithm in use
func (s *Scanner) Algorithm() filesystem.Algorithm {
	return s.hasher.Algorithm()
}

// Start begins scanning target against set. set is the snapshot used for the
// whole scan. An error is returned only when enumeration cannot begin.
func (s *Scanner) Start(ctx context.Context, target models.ScanTarget, set signatures.Set) (*Job, error) {
	resolved, err := models.ResolveTarget(target.Path, target.Mode)
	if err != nil {
		return nil, fmt.Errorf("cannot start scan: %w", err)
	}

	buffer := s.config.Scan.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		id:     uuid.NewString(),
		target: resolved,
		set:    set,
		events: make(chan models.Event, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	job.state.Store(int32(StateIdle))

	go s.run(jobCtx, job)
	return job, nil
}

// Scan runs a scan to completion, passing every event to onEvent
func (s *Scanner) Scan(ctx context.Context, target models.ScanTarget, set signatures.Set, onEvent func(models.Event)) (*models.ScanResults, error) {
	job, err := s.Start(ctx, target, set)
	if err != nil {
		return nil, err
	}

	for ev := range job.Events() {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	return job.Wait(), nil
}

func (s *Scanner) run(ctx context.Context, j *Job) {
	defer close(j.done)
	defer j.cancel()

	results := &models.ScanResults{
		ScanID:     j.id,
		Target:     j.target,
		StartTime:  time.Now(),
		Signatures: j.set.Len(),
		Algorithm:  string(s.hasher.Algorithm()),
		Verdicts:   []models.Verdict{},
		Stats:      &models.ScanStatistics{},
	}

	s.logger.Info("Starting scan",
		zap.String("scan_id", j.id),
		zap.String("path", j.target.Path),
		zap.String("mode", string(j.target.Mode)),
		zap.Int("signatures", results.Signatures))

	// Enumerate
	j.advance(StateEnumerating)
	files := s.enumerate(ctx, j, results)
	results.TotalFiles = len(files)

	// Scan
	j.advance(StateScanning)
	c := &collector{
		ctx:       ctx,
		job:       j,
		results:   results,
		total:     len(files),
		metrics:   s.metrics,
		algorithm: results.Algorithm,
	}
	j.emit(models.Event{Type: models.EventProgress, Progress: 0, Total: c.total})

	if !j.stopping(ctx) {
		limiter := s.newLimiter()
		if len(files) <= s.config.Scan.SequentialThreshold {
			results.Stats.WorkersUsed = 1
			s.scanSequential(ctx, j, files, limiter, c)
		} else {
			workers := s.workers()
			results.Stats.WorkersUsed = workers
			results.Stats.Concurrent = true
			s.scanConcurrent(ctx, j, files, workers, limiter, c)
		}
	}

	if len(files) == 0 && !j.cancelled.Load() {
		c.lastPct = 100
		j.emit(models.Event{Type: models.EventProgress, Progress: 100})
	}

	// Finalize results
	results.EndTime = time.Now()
	results.Duration = results.EndTime.Sub(results.StartTime)
	results.Cancelled = j.cancelled.Load()
	if d := results.Duration.Seconds(); d > 0 {
		results.Stats.FilesPerSecond = float64(results.ScannedFiles) / d
	}
	s.metrics.recordScan(ctx, results)

	s.logger.Info("Scan completed",
		zap.String("scan_id", j.id),
		zap.Duration("duration", results.Duration),
		zap.Int("threats_found", results.ThreatsFound),
		zap.Int("files_scanned", results.ScannedFiles),
		zap.Int("unreadable", results.Unreadable),
		zap.Bool("cancelled", results.Cancelled))

	j.results = results
	j.state.Store(int32(StateCompleted))
	j.emit(models.Event{Type: models.EventCompleted, Progress: c.lastPct, Done: results.ScannedFiles, Total: c.total, Results: results})
	close(j.events)
}

// enumerate lists the files of the target and reports unreadable subtrees
func (s *Scanner) enumerate(ctx context.Context, j *Job, results *models.ScanResults) []string {
	if j.target.Mode == models.ModeFile {
		return []string{j.target.Path}
	}

	files, enumErrs, err := s.walker.Collect(ctx, j.target.Path)
	if err != nil {
		s.logger.Info("Enumeration interrupted", zap.String("scan_id", j.id), zap.Error(err))
		j.stopping(ctx)
	}

	for i := range enumErrs {
		e := enumErrs[i]
		results.EnumerationErrors = append(results.EnumerationErrors, e)
		j.emit(models.Event{Type: models.EventEnumerationError, EnumerationError: &e})
	}

	return files
}

func (s *Scanner) scanSequential(ctx context.Context, j *Job, files []string, limiter *rate.Limiter, c *collector) {
	for _, path := range files {
		if j.stopping(ctx) || !s.wait(ctx, j, limiter) {
			return
		}
		c.add(s.evaluate(path, j.set))
	}
}

// scanConcurrent scans all files using worker pool
func (s *Scanner) scanConcurrent(ctx context.Context, j *Job, files []string, workers int, limiter *rate.Limiter, c *collector) {
	// Create channels
	fileChan := make(chan string, workers*2)
	resultsChan := make(chan models.Verdict, workers*2)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, j, &wg, limiter, fileChan, resultsChan)
	}

	// Start results collector
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for v := range resultsChan {
			c.add(v)
		}
	}()

	// Feed files to workers
feed:
	for _, path := range files {
		if j.stopping(ctx) {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case fileChan <- path:
		}
	}

	// Close channels and wait
	close(fileChan)
	wg.Wait()
	close(resultsChan)
	collectWg.Wait()
}

// worker processes files from the channel
func (s *Scanner) worker(ctx context.Context, j *Job, wg *sync.WaitGroup, limiter *rate.Limiter, fileChan <-chan string, resultsChan chan<- models.Verdict) {
	defer wg.Done()

	for path := range fileChan {
		// Drain without hashing once cancelled
		if j.stopping(ctx) || !s.wait(ctx, j, limiter) {
			continue
		}
		resultsChan <- s.evaluate(path, j.set)
	}
}

// evaluate hashes one file and matches it against the snapshot
func (s *Scanner) evaluate(path string, set signatures.Set) models.Verdict {
	fp, n, err := s.hasher.Fingerprint(path)
	if err != nil {
		s.logger.Debug("File unreadable", zap.String("path", path), zap.Error(err))
		return models.Verdict{
			Path:        path,
			Fingerprint: models.UnreadableMarker,
			Unreadable:  true,
			Error:       err.Error(),
			Size:        n,
		}
	}

	v := models.Verdict{
		Path:        path,
		Matched:     set.Contains(fp),
		Fingerprint: fp,
		Size:        n,
	}
	if v.Matched {
		s.logger.Warn("Signature match", zap.String("path", path), zap.String("fingerprint", fp))
	}
	return v
}

func (s *Scanner) workers() int {
	if s.config.Scan.Workers <= 0 {
		return config.DefaultWorkers
	}
	return s.config.Scan.Workers
}

func (s *Scanner) newLimiter() *rate.Limiter {
	if s.config.Scan.RateLimit <= 0 {
		return nil
	}
	burst := int(s.config.Scan.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.config.Scan.RateLimit), burst)
}

// wait blocks on the throttle; false means the scan was cancelled meanwhile
func (s *Scanner) wait(ctx context.Context, j *Job, limiter *rate.Limiter) bool {
	if limiter == nil {
		return true
	}
	if err := limiter.Wait(ctx); err != nil {
		j.stopping(ctx)
		return false
	}
	return !j.stopping(ctx)
}

// collector is the single writer of results and progress
type collector struct {
	ctx       context.Context
	job       *Job
	results   *models.ScanResults
	total     int
	lastPct   int
	metrics   *scanMetrics
	algorithm string
}

func (c *collector) add(v models.Verdict) {
	c.results.AddVerdict(v)
	c.metrics.recordVerdict(c.ctx, v, c.algorithm)

	verdict := v
	c.job.emit(models.Event{Type: models.EventVerdict, Verdict: &verdict})

	done := c.results.ScannedFiles
	c.lastPct = done * 100 / c.total
	c.job.emit(models.Event{Type: models.EventProgress, Progress: c.lastPct, Done: done, Total: c.total})
}
