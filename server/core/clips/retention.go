package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeti47/framegrab/server/core/ccc/logging"
)

// RetentionManager keeps an output directory below a file count cap.
type RetentionManager interface {
	// EnforceCap deletes the oldest files with extension ext in dir until at
	// most maxFiles remain. It returns the paths that were removed. Individual
	// deletion failures are logged and skipped.
	EnforceCap(dir, ext string, maxFiles int) ([]string, error)
}

// RemovalObserver is notified for every file the retention pass deletes.
type RemovalObserver func(path string)

type retentionManager struct {
	logger   logging.Logger
	observer RemovalObserver

	// one pass per directory at a time
	dirMutexes sync.Map // map[string]*sync.Mutex
}

// NewRetentionManager creates a retention manager. observer may be nil.
func NewRetentionManager(logger logging.Logger, observer RemovalObserver) RetentionManager {
	if logger == nil {
		logger = logging.NopLogger
	}
	if observer == nil {
		observer = func(string) {}
	}
	return &retentionManager{
		logger:   logger,
		observer: observer,
	}
}

func (r *retentionManager) getDirMutex(dir string) *sync.Mutex {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mutex, _ := r.dirMutexes.LoadOrStore(key, &sync.Mutex{})
	return mutex.(*sync.Mutex)
}

type candidate struct {
	path    string
	modTime time.Time
}

func (r *retentionManager) EnforceCap(dir, ext string, maxFiles int) ([]string, error) {
	if maxFiles < 0 {
		return nil, fmt.Errorf("invalid retention cap: %d", maxFiles)
	}

	mutex := r.getDirMutex(dir)
	mutex.Lock()
	defer mutex.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Error("failed to list clip directory", "dir", dir, "error", err)
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}

	suffix := "." + strings.TrimPrefix(ext, ".")
	var files []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed by someone else between listing and stat
			r.logger.Debug("skipping clip without metadata", "name", entry.Name(), "error", err)
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	excess := len(files) - maxFiles
	if excess <= 0 {
		return nil, nil
	}

	// stable keeps listing order for equal modification times
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	removed := make([]string, 0, excess)
	for _, file := range files[:excess] {
		if err := os.Remove(file.path); err != nil {
			r.logger.Warn("failed to delete old clip", "path", file.path, "error", err)
			continue
		}
		r.logger.Info("deleted old clip to stay under cap", "path", file.path, "max_files", maxFiles)
		r.observer(file.path)
		removed = append(removed, file.path)
	}

	return removed, nil
}
