// Package watch triggers migration runs when new files land in the
// inbox directory. Filesystem events are debounced so a burst of writes
// produces one run after the directory settles, and a rate limiter caps
// how often runs can fire.
package watch

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/sym"
)

const (
	defaultDebounce         = 500 * time.Millisecond
	defaultMaxRunsPerMinute = 6
)

// RunFunc executes one migration pass. The engine calls it after the
// inbox settles; errors are logged and the engine keeps watching.
type RunFunc func(ctx context.Context) error

// Options configures a watch engine.
type Options struct {
	Dir              string // inbox directory to watch
	Debounce         time.Duration
	MaxRunsPerMinute int
	PostRunHook      string // shell command run after each successful pass
	Logger           *zap.SugaredLogger
}

// Engine watches an inbox and drives debounced, rate-limited migration
// runs until stopped.
type Engine struct {
	dir      string
	debounce time.Duration
	limiter  *rate.Limiter
	hook     []string
	run      RunFunc
	log      *zap.SugaredLogger

	watcher *fsnotify.Watcher

	mu            sync.Mutex
	debounceTimer *time.Timer

	// runCh carries coalesced triggers; a burst of events becomes at
	// most one queued run.
	runCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watch engine around run. The hook command is parsed up
// front so quoting mistakes fail before watching starts.
func New(run RunFunc, opts Options) (*Engine, error) {
	if run == nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "watch requires a run function")
	}
	if !safeio.DirExists(opts.Dir) {
		return nil, errors.Newf("watch directory does not exist: %s", opts.Dir)
	}

	var hook []string
	if opts.PostRunHook != "" {
		parsed, err := shellquote.Split(opts.PostRunHook)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed post-run hook %q", opts.PostRunHook)
		}
		hook = parsed
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	maxRuns := opts.MaxRunsPerMinute
	if maxRuns <= 0 {
		maxRuns = defaultMaxRunsPerMinute
	}
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		dir:      opts.Dir,
		debounce: debounce,
		limiter:  rate.NewLimiter(rate.Limit(float64(maxRuns)/60.0), 1),
		hook:     hook,
		run:      run,
		log:      log,
		runCh:    make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching the inbox and immediately queues one run so
// files already sitting there are picked up.
func (e *Engine) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create filesystem watcher")
	}
	if err := watcher.Add(e.dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch %s", e.dir)
	}
	e.watcher = watcher

	e.wg.Add(2)
	go e.watchLoop()
	go e.runLoop()

	e.trigger()

	e.log.Infow("Watch started",
		"sym", sym.Watch,
		"dir", e.dir,
		"debounce", e.debounce,
		"post_run_hook", strings.Join(e.hook, " "),
	)
	return nil
}

// Stop cancels in-flight work and waits for both loops to drain.
func (e *Engine) Stop() {
	e.cancel()
	if e.watcher != nil {
		e.watcher.Close()
	}
	e.wg.Wait()
	e.log.Infow("Watch stopped", "sym", sym.Watch)
}

func (e *Engine) watchLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnore(event.Name) {
				continue
			}
			e.log.Debugw("Inbox changed",
				"sym", sym.Watch,
				"file", event.Name,
				"op", event.Op.String(),
			)
			e.scheduleRun()
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.log.Warnw("Watcher error",
				"sym", sym.Watch,
				"error", err,
			)
		}
	}
}

// scheduleRun resets the debounce timer; the run fires only after the
// inbox has been quiet for the full debounce period.
func (e *Engine) scheduleRun() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.debounce, e.trigger)
}

func (e *Engine) trigger() {
	select {
	case e.runCh <- struct{}{}:
	default:
	}
}

func (e *Engine) runLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.runCh:
			// Wait rather than drop: the last trigger of a burst must
			// not be lost or files would sit unprocessed until the next
			// event.
			if err := e.limiter.Wait(e.ctx); err != nil {
				return
			}
			e.runOnce()
		}
	}
}

func (e *Engine) runOnce() {
	start := time.Now()
	e.log.Infow("Inbox settled, running migration", "sym", sym.Watch)

	if err := e.run(e.ctx); err != nil {
		e.log.Errorw("Triggered migration failed",
			"sym", sym.Watch,
			"error", err,
		)
		return
	}

	e.log.Infow("Triggered migration complete",
		"sym", sym.Watch,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	e.runHook()
}

func (e *Engine) runHook() {
	if len(e.hook) == 0 {
		return
	}

	cmd := exec.CommandContext(e.ctx, e.hook[0], e.hook[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.log.Errorw("Post-run hook failed",
			"sym", sym.Watch,
			"hook", strings.Join(e.hook, " "),
			"output", strings.TrimSpace(string(out)),
			"error", err,
		)
		return
	}
	e.log.Debugw("Post-run hook completed",
		"sym", sym.Watch,
		"hook", strings.Join(e.hook, " "),
	)
}

// shouldIgnore filters hidden files and the temp names atomic writers
// leave behind mid-rename.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.Contains(base, ".tmp")
}
