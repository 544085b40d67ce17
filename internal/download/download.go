// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download retrieves the files behind dataset references. The
// Dispatcher walks each reference's strategy chain with bounded retries,
// records successes in the download history and skips references already
// downloaded. DownloadMany runs references through a bounded worker pool.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/dataset-engine/internal/history"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/internal/strategy"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Defaults applied when Options leaves a field empty.
const (
	DefaultWorkers     = 4
	DefaultItemTimeout = 10 * time.Minute
)

// maxNameLen caps a sanitized directory name, in runes.
const maxNameLen = 100

// ErrCancelled is the error reported for references the batch never started
// because its context was cancelled.
var ErrCancelled = errors.New("cancelled")

// Resolver returns the strategy chain for a repository tag.
type Resolver interface {
	Resolve(tag types.RepositoryTag) []strategy.Strategy
}

// Options configures a Dispatcher.
type Options struct {
	// Root is the download directory; each reference gets a subdirectory.
	Root string

	// Workers bounds concurrent references in DownloadMany.
	Workers int

	// ItemTimeout bounds the total time spent on one reference.
	ItemTimeout time.Duration

	// Retry bounds the tries of a single strategy. Logical failures are
	// never retried regardless of Retry.Retryable.
	Retry httputil.Policy

	Log logging.Logger
}

// OptionsFromConfig maps the download configuration onto Options.
func OptionsFromConfig(cfg types.DownloadConfig, log logging.Logger) Options {
	return Options{
		Root:        cfg.Dir,
		Workers:     cfg.Workers,
		ItemTimeout: cfg.ItemTimeout,
		Retry:       httputil.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryDelay},
		Log:         log,
	}
}

// Dispatcher downloads references through a strategy registry.
type Dispatcher struct {
	registry Resolver
	history  history.Store
	root     string
	workers  int
	timeout  time.Duration
	retry    httputil.Policy
	log      logging.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock serializes work on one idempotency key. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New returns a Dispatcher. store may be an in-memory store.
func New(registry Resolver, store history.Store, opts Options) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		history:  store,
		root:     opts.Root,
		workers:  opts.Workers,
		timeout:  opts.ItemTimeout,
		retry:    opts.Retry,
		log:      logging.OrNop(opts.Log),
		locks:    make(map[string]*keyLock),
	}
	if d.workers <= 0 {
		d.workers = DefaultWorkers
	}
	if d.timeout <= 0 {
		d.timeout = DefaultItemTimeout
	}
	if d.retry.Retryable == nil {
		d.retry.Retryable = httputil.IsTransient
	}
	retryable := d.retry.Retryable
	d.retry.Retryable = func(err error) bool {
		return !strategy.IsLogical(err) && retryable(err)
	}
	return d
}

// History returns the dispatcher's history store.
func (d *Dispatcher) History() history.Store { return d.history }

// IdempotencyKey identifies a reference across runs: its URL, else its DOI,
// else a hash of its name and repository.
func IdempotencyKey(ref types.DatasetReference) string {
	if ref.URL != "" {
		return ref.URL
	}
	if ref.DOI != "" {
		return ref.DOI
	}
	sum := sha256.Sum256([]byte(ref.Name + string(ref.Repository)))
	return hex.EncodeToString(sum[:])
}

// SanitizeName turns a reference name into a directory name: characters
// that are unsafe in paths become underscores and the result is capped at
// 100 runes. An empty result becomes "dataset".
func SanitizeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(name) {
		if n >= maxNameLen {
			break
		}
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			r = '_'
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		n++
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "dataset"
	}
	return out
}

// DownloadOne retrieves ref. Unless force is set, a reference with a
// success record is skipped without touching the network. Strategies are
// tried in chain order; the first success is recorded in history. When
// every strategy fails the last error is returned and nothing is recorded.
func (d *Dispatcher) DownloadOne(ctx context.Context, ref types.DatasetReference, force bool) types.DownloadResult {
	start := time.Now()
	key := IdempotencyKey(ref)
	log := d.log.With(logging.String("key", key), logging.String("repository", ref.Repository.String()))

	unlock := d.lock(key)
	defer unlock()

	result := types.DownloadResult{Reference: ref}
	finish := func() types.DownloadResult {
		result.Duration = time.Since(start)
		return result
	}

	if !force {
		if rec, ok := history.Succeeded(ctx, d.history, key); ok {
			log.Info("already downloaded", logging.String("path", rec.Path))
			result.Status = types.StatusSkipped
			result.Files = rec.Files
			result.TotalSize = rec.TotalSize
			result.Path = rec.Path
			result.Strategy = rec.Strategy
			return finish()
		}
	}

	dir := filepath.Join(d.root, DirName(ref))
	_, statErr := os.Stat(dir)
	created := os.IsNotExist(statErr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = types.StatusFailed
		result.Error = fmt.Sprintf("creating directory %s: %v", dir, err)
		log.Error("download failed", logging.String("error", result.Error))
		return finish()
	}

	var lastErr error
	for _, s := range d.registry.Resolve(ref.Repository) {
		before := snapshot(dir)
		var out strategy.Outcome
		tries, err := httputil.Retry(ctx, d.retry, func(ctx context.Context) error {
			var aerr error
			out, aerr = s.Attempt(ctx, ref, dir)
			return aerr
		})
		attempt := types.StrategyAttempt{Strategy: s.Name(), Tries: tries}
		if err == nil {
			result.Attempts = append(result.Attempts, attempt)
			result.Status = types.StatusSuccess
			result.Files = out.Files
			result.TotalSize = httputil.TotalSize(out.Files)
			result.Path = dir
			result.Strategy = s.Name()
			d.record(ctx, key, ref, result, log)
			log.Info("download succeeded",
				logging.String("strategy", s.Name()),
				logging.Int("files", len(out.Files)),
				logging.Int64("bytes", result.TotalSize))
			return finish()
		}

		attempt.Error = err.Error()
		result.Attempts = append(result.Attempts, attempt)
		lastErr = err
		if n := discardNew(dir, before); n > 0 {
			log.Debug("discarded partial output", logging.String("strategy", s.Name()), logging.Int("entries", n))
		}
		if strategy.IsLogical(err) {
			log.Debug("strategy not usable", logging.String("strategy", s.Name()), logging.Err(err))
		} else {
			log.Warn("strategy failed", logging.String("strategy", s.Name()), logging.Int("tries", tries), logging.Err(err))
		}
		if ctx.Err() != nil {
			break
		}
	}

	if created {
		os.RemoveAll(dir)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no strategy for repository %q", ref.Repository)
	}
	result.Status = types.StatusFailed
	result.Error = lastErr.Error()
	log.Error("download failed", logging.Err(lastErr))
	return finish()
}

// record persists a success. History errors are logged and otherwise
// ignored.
func (d *Dispatcher) record(ctx context.Context, key string, ref types.DatasetReference, result types.DownloadResult, log logging.Logger) {
	rec := types.HistoryRecord{
		Key:         key,
		Status:      types.HistorySuccess,
		Timestamp:   time.Now().UTC(),
		Path:        result.Path,
		Files:       result.Files,
		TotalSize:   result.TotalSize,
		Strategy:    result.Strategy,
		Name:        ref.Name,
		Repository:  ref.Repository,
		URL:         ref.URL,
		DOI:         ref.DOI,
		SourceTitle: ref.Source.Title,
		SourceURL:   ref.Source.URL,
	}
	if err := d.history.Put(context.WithoutCancel(ctx), key, rec); err != nil {
		log.Warn("recording history failed", logging.Err(err))
	}
}

// DirName returns the directory name for ref under the download root: the
// sanitized reference name plus a short hash of its idempotency key. Names
// that sanitize alike ("Dataset from zenodo") stay disjoint across runs and
// dispatchers, and the same reference always maps to the same directory.
func DirName(ref types.DatasetReference) string {
	sum := sha256.Sum256([]byte(IdempotencyKey(ref)))
	return SanitizeName(ref.Name) + "-" + hex.EncodeToString(sum[:4])
}

// lock serializes work on one key, so duplicate references in a batch
// download once and the later ones are skipped. The returned func releases
// the lock and drops the entry when no other caller holds or awaits it.
func (d *Dispatcher) lock(key string) func() {
	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &keyLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}

// snapshot lists the entries under dir, relative to it.
func snapshot(dir string) map[string]bool {
	seen := make(map[string]bool)
	filepath.WalkDir(dir, func(path string, _ fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			seen[rel] = true
		}
		return nil
	})
	return seen
}

// discardNew removes whatever appeared under dir since before was taken and
// returns the number of top-most entries removed. A failed strategy must not
// leave files for the next one to inherit outside its manifest.
func discardNew(dir string, before map[string]bool) int {
	removed := 0
	filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || before[rel] {
			return nil
		}
		if rmErr := os.RemoveAll(path); rmErr == nil {
			removed++
		}
		if e.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return removed
}
