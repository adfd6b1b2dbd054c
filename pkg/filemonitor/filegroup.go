package filemonitor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// FileChangeCallback is invoked for every matching event.
type FileChangeCallback func(event fsnotify.Event) error

// FileGroup selects the files under RootDir whose base name
// matches Pattern.
type FileGroup struct {
	ID      string
	RootDir string
	Pattern *regexp.Regexp

	mutex     sync.RWMutex
	callbacks []FileChangeCallback
}

func NewFileGroup(id, rootDir, pattern string) (*FileGroup, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}
	return &FileGroup{
		ID:      id,
		RootDir: filepath.Clean(rootDir),
		Pattern: re,
	}, nil
}

// NewFileGroupForFile builds a group matching exactly one file.
func NewFileGroupForFile(id, path string) (*FileGroup, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return NewFileGroup(id, filepath.Dir(abs), "^"+regexp.QuoteMeta(filepath.Base(abs))+"$")
}

func (fg *FileGroup) AddCallback(callback FileChangeCallback) {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()
	fg.callbacks = append(fg.callbacks, callback)
}

// Match reports whether path lies under RootDir and matches Pattern.
func (fg *FileGroup) Match(path string) bool {
	rel, err := filepath.Rel(fg.RootDir, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return fg.Pattern.MatchString(filepath.Base(path))
}

// HandleEvent runs the callbacks for a matching event, in order.
func (fg *FileGroup) HandleEvent(event fsnotify.Event) {
	if !fg.Match(event.Name) {
		return
	}

	fg.mutex.RLock()
	callbacks := make([]FileChangeCallback, len(fg.callbacks))
	copy(callbacks, fg.callbacks)
	fg.mutex.RUnlock()

	for _, cb := range callbacks {
		if err := cb(event); err != nil {
			log.Error().
				Str("group", fg.ID).
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Err(err).
				Msg("file change callback failed")
		}
	}
}
