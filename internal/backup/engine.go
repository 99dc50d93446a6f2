// Package backup copies a directory tree with integrity verification,
// progress events and cooperative cancellation.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kr/fs"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// DefaultDirPermissions is the mode used for mirrored destination directories.
const DefaultDirPermissions = 0o750

// Engine performs backup runs. An Engine holds no per-run state and may be
// reused, but runs must not overlap on the same destination.
type Engine struct {
	copier Copier
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCopier sets the file copier.
func WithCopier(c Copier) Option {
	return func(e *Engine) {
		e.copier = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		copier: FileCopier{},
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// run carries the state of a single Run call.
type run struct {
	id       string
	cfg      domain.BackupConfig
	sel      *Selector
	emitter  EventEmitter
	progress domain.Progress
	start    time.Time
	// destReal is the destination with links resolved, empty if unknown.
	destReal string
}

// Run copies cfg.Source into cfg.Destination, following symbolic links.
// Cancelling ctx stops the run at the next directory entry; a file copy in
// flight always completes first.
// Run never panics on filesystem errors and always emits a Finished event.
func (e *Engine) Run(ctx context.Context, cfg domain.BackupConfig, emitter EventEmitter) domain.Outcome {
	if emitter == nil {
		emitter = EmitterFunc(func(Event) {})
	}

	r := &run{
		id:      uuid.NewString(),
		cfg:     cfg,
		emitter: emitter,
		start:   e.now(),
	}
	logger := e.logger.With("run_id", r.id)

	if err := validateConfig(cfg); err != nil {
		return e.finish(r, logger, err)
	}

	if resolved, err := filepath.EvalSymlinks(cfg.Destination); err == nil {
		if abs, err := filepath.Abs(resolved); err == nil {
			r.destReal = abs
		}
	}

	sel, err := NewSelector(cfg)
	if err != nil {
		return e.finish(r, logger, &ConfigError{Reason: err.Error()})
	}
	r.sel = sel

	logger.Info("backup started",
		"source", cfg.Source,
		"destination", cfg.Destination,
		"mode", cfg.Mode,
	)

	total, err := e.count(ctx, r)
	if err != nil {
		return e.finish(r, logger, err)
	}
	r.progress.FilesTotal = total
	emitter.Emit(Started{RunID: r.id, FilesTotal: total})
	logger.Debug("source counted", "files_total", total)

	return e.finish(r, logger, e.copyTree(ctx, r, logger))
}

// count walks the source once and returns how many files will be copied.
func (e *Engine) count(ctx context.Context, r *run) (uint64, error) {
	var total uint64

	err := e.walk(ctx, r, "scan", nil, func(ent entry) error {
		if !ent.info.IsDir() && ent.info.Mode().IsRegular() && r.sel.IncludeFile(ent.rel) {
			total++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (e *Engine) copyTree(ctx context.Context, r *run, logger *slog.Logger) error {
	return e.walk(ctx, r, "walk", logger, func(ent entry) error {
		dst := filepath.Join(r.cfg.Destination, ent.rel)

		if ent.info.IsDir() {
			if err := os.MkdirAll(dst, DefaultDirPermissions); err != nil {
				return &IOError{Op: "create directory", Path: dst, Err: err}
			}
			return nil
		}

		if !ent.info.Mode().IsRegular() || !r.sel.IncludeFile(ent.rel) {
			return nil
		}

		if r.progress.FilesCopied >= r.progress.FilesTotal {
			logger.Warn("file appeared after counting, skipping", "path", ent.rel)
			return nil
		}

		n, err := e.copyAndVerify(ent.path, dst, ent.rel, r.cfg.HashAlgorithm)
		if err != nil {
			return err
		}

		r.progress.FilesCopied++
		r.progress.BytesCopied += uint64(n)
		r.progress.CurrentFile = ent.rel
		r.emitter.Emit(FileCopied{RunID: r.id, Progress: r.progress})
		logger.Debug("file copied", "path", ent.rel, "bytes", n)
		return nil
	})
}

// entry is one item of the source tree. Symbolic links are resolved: info
// describes the link target and path still names the link.
type entry struct {
	path string
	rel  string
	info os.FileInfo
}

// walk visits every entry under the source in lexical order, following
// symbolic links. A linked directory is skipped when it would revisit a
// directory already being walked, or when it reaches into the destination.
// Skips are logged when logger is non-nil, so only one pass reports them.
func (e *Engine) walk(ctx context.Context, r *run, op string, logger *slog.Logger, visit func(entry) error) error {
	root, err := filepath.EvalSymlinks(r.cfg.Source)
	if err == nil {
		root, err = filepath.Abs(root)
	}
	if err != nil {
		return &IOError{Op: op, Path: r.cfg.Source, Err: err}
	}
	w := &treeWalk{
		ctx:     ctx,
		r:       r,
		op:      op,
		logger:  logger,
		visit:   visit,
		active:  map[string]bool{root: true},
		destAbs: r.destReal,
	}
	return w.dir(root, "")
}

type treeWalk struct {
	ctx     context.Context
	r       *run
	op      string
	logger  *slog.Logger
	visit   func(entry) error
	active  map[string]bool
	destAbs string
}

func (w *treeWalk) skip(msg, rel string, args ...any) {
	if w.logger != nil {
		w.logger.Warn(msg, append([]any{"path", rel}, args...)...)
	}
}

func (w *treeWalk) dir(root, prefix string) error {
	walker := fs.Walk(root)
	for walker.Step() {
		if w.ctx.Err() != nil {
			return ErrCancelled
		}
		if err := walker.Err(); err != nil {
			return &IOError{Op: w.op, Path: walker.Path(), Err: err}
		}

		rel, ok := relPath(root, walker.Path())
		if !ok {
			continue
		}
		rel = filepath.Join(prefix, rel)
		info := walker.Stat()

		if info.IsDir() {
			if w.r.sel.SkipDir(rel) {
				walker.SkipDir()
				continue
			}
			if err := w.visit(entry{path: walker.Path(), rel: rel, info: info}); err != nil {
				return err
			}
			continue
		}

		if info.Mode()&os.ModeSymlink == 0 {
			if err := w.visit(entry{path: walker.Path(), rel: rel, info: info}); err != nil {
				return err
			}
			continue
		}

		target, err := os.Stat(walker.Path())
		if err != nil {
			w.skip("broken symbolic link, skipping", rel, "error", err)
			continue
		}
		if !target.IsDir() {
			if err := w.visit(entry{path: walker.Path(), rel: rel, info: target}); err != nil {
				return err
			}
			continue
		}

		if err := w.linkedDir(walker.Path(), rel, target); err != nil {
			return err
		}
	}
	return nil
}

func (w *treeWalk) linkedDir(path, rel string, info os.FileInfo) error {
	if w.r.sel.SkipDir(rel) {
		return nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return &IOError{Op: w.op, Path: path, Err: err}
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return &IOError{Op: w.op, Path: filepath.Dir(path), Err: err}
	}

	if w.active[resolved] || overlaps(resolved, parent) {
		w.skip("symbolic link loop, skipping", rel, "target", resolved)
		return nil
	}
	if w.destAbs != "" && (overlaps(resolved, w.destAbs) || overlaps(w.destAbs, resolved)) {
		w.skip("symbolic link reaches the destination, skipping", rel, "target", resolved)
		return nil
	}

	if err := w.visit(entry{path: path, rel: rel, info: info}); err != nil {
		return err
	}

	w.active[resolved] = true
	defer delete(w.active, resolved)
	return w.dir(resolved, rel)
}

// overlaps reports whether path is dir or lies inside it.
func overlaps(dir, path string) bool {
	if dir == path {
		return true
	}
	_, inside := relPath(dir, path)
	return inside
}

func (e *Engine) copyAndVerify(src, dst, rel string, alg domain.HashAlgorithm) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), DefaultDirPermissions); err != nil {
		return 0, &IOError{Op: "create directory", Path: filepath.Dir(dst), Err: err}
	}

	n, err := e.copier.Copy(src, dst)
	if err != nil {
		return n, &IOError{Op: "copy", Path: rel, Err: err}
	}

	srcSum, err := HashFile(src, alg)
	if err != nil {
		return n, &IOError{Op: "hash", Path: src, Err: err}
	}
	dstSum, err := HashFile(dst, alg)
	if err != nil {
		return n, &IOError{Op: "hash", Path: dst, Err: err}
	}
	if srcSum != dstSum {
		return n, &CorruptionError{Path: rel, SourceSum: srcSum, DestSum: dstSum}
	}

	return n, nil
}

func (e *Engine) finish(r *run, logger *slog.Logger, err error) domain.Outcome {
	end := e.now()
	outcome := domain.Outcome{
		RunID:       r.id,
		StartTime:   r.start,
		EndTime:     end,
		FilesCopied: r.progress.FilesCopied,
	}

	switch {
	case err == nil:
		outcome.Kind = domain.OutcomeSuccess
		outcome.Duration = end.Sub(r.start)
		outcome.BytesCopied = r.progress.BytesCopied
		logger.Info("backup completed",
			"files", r.progress.FilesCopied,
			"bytes", humanize.Bytes(r.progress.BytesCopied),
			"duration", outcome.Duration.Round(time.Millisecond),
		)
	case errors.Is(err, ErrCancelled):
		outcome.Kind = domain.OutcomeCancelled
		outcome.Err = err
		logger.Info("backup cancelled",
			"files_copied", r.progress.FilesCopied,
			"files_total", r.progress.FilesTotal,
		)
	default:
		outcome.Kind = domain.OutcomeFailed
		outcome.Err = err
		logger.Error("backup failed", "error", err, "files_copied", r.progress.FilesCopied)
	}

	r.emitter.Emit(Finished{Outcome: outcome, Progress: r.progress})
	return outcome
}

func validateConfig(cfg domain.BackupConfig) error {
	if cfg.Source == "" || cfg.Destination == "" {
		return &ConfigError{Reason: "source and destination are required", Err: domain.ErrNotConfigured}
	}
	if cfg.Mode != "" && !cfg.Mode.IsValid() {
		return &ConfigError{Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if cfg.HashAlgorithm != "" && !cfg.HashAlgorithm.IsValid() {
		return &ConfigError{Reason: fmt.Sprintf("unknown hash algorithm %q", cfg.HashAlgorithm)}
	}

	src, err := requireDir(cfg.Source, "source")
	if err != nil {
		return err
	}
	dst, err := requireDir(cfg.Destination, "destination")
	if err != nil {
		return err
	}

	if rel, ok := relPath(src, dst); ok || rel == "." {
		return &ConfigError{Reason: "destination must not be inside the source", Path: cfg.Destination}
	}

	return nil
}

func requireDir(path, name string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ConfigError{Reason: name + " path is invalid", Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ConfigError{Reason: name + " folder does not exist", Path: path, Err: err}
	}
	if !info.IsDir() {
		return "", &ConfigError{Reason: name + " is not a directory", Path: path}
	}
	return abs, nil
}

// relPath returns target relative to root. ok is false for root itself and
// for paths outside root.
func relPath(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return rel, false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
