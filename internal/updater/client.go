package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/IvanShishkin/sigscan/internal/config"
	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// maxPayload caps the feed body size
const maxPayload = 64 << 20

// SyncResult describes a completed sync
type SyncResult struct {
	Set       signatures.Set // merged set
	Remote    int            // fingerprints in the feed
	Added     int            // fingerprints new to the local set
	FetchedAt time.Time
}

// Client pulls fingerprints from a remote feed at most once per cooldown
type Client struct {
	url       string
	stateFile string
	userAgent string
	cooldown  time.Duration
	timeout   time.Duration
	http      *retryablehttp.Client
	logger    *zap.Logger

	mu       sync.Mutex
	lastSync time.Time

	// syncMu spans the due check through record so concurrent syncs fetch once
	syncMu sync.Mutex
}

// NewClient creates a sync client and reads the recorded last sync time.
// An unreadable state file counts as never synced.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = leveledLogger{logger.Sugar().Named("http")}
	httpClient.RetryMax = cfg.Sync.Retries
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second

	cooldown := cfg.Sync.Cooldown
	if cooldown <= 0 {
		cooldown = config.DefaultCooldown
	}
	userAgent := cfg.Sync.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	c := &Client{
		url:       cfg.Sync.URL,
		stateFile: cfg.Sync.StateFile,
		userAgent: userAgent,
		cooldown:  cooldown,
		timeout:   cfg.SyncTimeout(),
		http:      httpClient,
		logger:    logger,
	}

	if c.stateFile != "" {
		last, err := loadState(c.stateFile)
		if err != nil {
			logger.Warn("Ignoring unreadable sync state", zap.String("path", c.stateFile), zap.Error(err))
		}
		c.lastSync = last
	}

	return c
}

// LastSync returns the time of the last successful sync, zero if none
func (c *Client) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// IsDue reports whether more than the cooldown has elapsed since the last
// successful sync
func (c *Client) IsDue(now time.Time) bool {
	last := c.LastSync()
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > c.cooldown
}

// Fetch downloads and validates the feed. Failures are *SyncError.
func (c *Client) Fetch(ctx context.Context, timeout time.Duration) (signatures.Set, error) {
	if c.url == "" {
		return signatures.Set{}, &SyncError{Kind: KindNetwork, Err: ErrNoURL}
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return signatures.Set{}, &SyncError{Kind: KindNetwork, URL: c.url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return signatures.Set{}, &SyncError{Kind: KindNetwork, URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return signatures.Set{}, &SyncError{Kind: KindNetwork, URL: c.url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload+1))
	if err != nil {
		return signatures.Set{}, &SyncError{Kind: KindNetwork, URL: c.url, Err: err}
	}
	if len(body) > maxPayload {
		return signatures.Set{}, &SyncError{Kind: KindFormat, URL: c.url, Err: fmt.Errorf("payload exceeds %d bytes", maxPayload)}
	}

	set, err := parsePayload(body)
	if err != nil {
		return signatures.Set{}, &SyncError{Kind: KindFormat, URL: c.url, Err: err}
	}

	c.logger.Debug("Signature feed fetched", zap.String("url", c.url), zap.Int("count", set.Len()))
	return set, nil
}

// Merge returns the union of local and remote and how many remote
// fingerprints were new
func Merge(local, remote signatures.Set) (signatures.Set, int) {
	return local.Union(remote)
}

// Sync fetches and merges into local when due (or forced). A nil result with
// a nil error means the cooldown has not elapsed. On failure the recorded
// sync time is unchanged.
func (c *Client) Sync(ctx context.Context, local signatures.Set, now time.Time, force bool) (*SyncResult, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if !force && !c.IsDue(now) {
		c.logger.Debug("Signature sync not due", zap.Time("last_sync", c.LastSync()))
		return nil, nil
	}

	remote, err := c.Fetch(ctx, c.timeout)
	if err != nil {
		c.logger.Warn("Signature sync failed", zap.Error(err))
		return nil, err
	}

	merged, added := Merge(local, remote)
	c.record(now)

	c.logger.Info("Signature sync completed", zap.Int("remote", remote.Len()), zap.Int("added", added))
	return &SyncResult{Set: merged, Remote: remote.Len(), Added: added, FetchedAt: now}, nil
}

// SyncStore is Sync merging straight into store. The sync time is only
// recorded after the store has been saved.
func (c *Client) SyncStore(ctx context.Context, store *signatures.Store, now time.Time, force bool) (*SyncResult, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if !force && !c.IsDue(now) {
		c.logger.Debug("Signature sync not due", zap.Time("last_sync", c.LastSync()))
		return nil, nil
	}

	remote, err := c.Fetch(ctx, c.timeout)
	if err != nil {
		c.logger.Warn("Signature sync failed", zap.Error(err))
		return nil, err
	}

	added, err := store.Add(remote.Sorted()...)
	if err != nil {
		c.logger.Warn("Signature sync could not update the store", zap.Error(err))
		return nil, err
	}
	c.record(now)

	c.logger.Info("Signature sync completed", zap.Int("remote", remote.Len()), zap.Int("added", added))
	return &SyncResult{Set: store.Load(), Remote: remote.Len(), Added: added, FetchedAt: now}, nil
}

func (c *Client) record(now time.Time) {
	c.mu.Lock()
	c.lastSync = now
	c.mu.Unlock()

	if c.stateFile == "" {
		return
	}
	if err := saveState(c.stateFile, now); err != nil {
		c.logger.Warn("Failed to persist sync state", zap.String("path", c.stateFile), zap.Error(err))
	}
}

// parsePayload accepts a JSON array of non-empty fingerprint strings
func parsePayload(body []byte) (signatures.Set, error) {
	if !gjson.ValidBytes(body) {
		return signatures.Set{}, fmt.Errorf("payload is not valid JSON")
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return signatures.Set{}, fmt.Errorf("payload is not a JSON array")
	}

	var fps []string
	var bad error
	index := 0
	root.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.String {
			bad = fmt.Errorf("element %d is %s, want string", index, value.Type)
			return false
		}
		if value.Str == "" || strings.IndexFunc(value.Str, unicode.IsSpace) >= 0 {
			bad = fmt.Errorf("element %d is not a fingerprint: %q", index, value.Str)
			return false
		}
		fps = append(fps, value.Str)
		index++
		return true
	})
	if bad != nil {
		return signatures.Set{}, bad
	}

	return signatures.NewSet(fps...), nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
