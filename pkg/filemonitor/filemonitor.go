package filemonitor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the bursts of events editors produce when
// saving a file.
const DefaultDebounce = 100 * time.Millisecond

// FileMonitor watches the root directories of its groups and forwards
// debounced events to them. Watching the directory rather than the file
// keeps working across atomic rename-on-save.
type FileMonitor struct {
	debounce time.Duration

	mutex   sync.RWMutex
	groups  map[string]*FileGroup
	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewFileMonitor(debounce time.Duration) *FileMonitor {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileMonitor{
		debounce: debounce,
		groups:   make(map[string]*FileGroup),
		pending:  make(map[string]*time.Timer),
	}
}

// AddGroup registers group; when the monitor is running its root directory
// is watched immediately.
func (fm *FileMonitor) AddGroup(group *FileGroup) error {
	if group == nil {
		return errors.New("group cannot be nil")
	}
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if _, exists := fm.groups[group.ID]; exists {
		return fmt.Errorf("group with ID '%s' already exists", group.ID)
	}
	if fm.watcher != nil {
		if err := fm.watcher.Add(group.RootDir); err != nil {
			return fmt.Errorf("failed to watch directory '%s': %w", group.RootDir, err)
		}
	}
	fm.groups[group.ID] = group
	return nil
}

func (fm *FileMonitor) IsRunning() bool {
	fm.mutex.RLock()
	defer fm.mutex.RUnlock()
	return fm.watcher != nil
}

func (fm *FileMonitor) Start() error {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if fm.watcher != nil {
		return errors.New("file monitor is already running")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, group := range fm.groups {
		if err := watcher.Add(group.RootDir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory '%s': %w", group.RootDir, err)
		}
	}

	fm.watcher = watcher
	fm.stopCh = make(chan struct{})
	fm.wg.Add(1)
	go fm.watchLoop(watcher, fm.stopCh)
	return nil
}

func (fm *FileMonitor) Stop() error {
	fm.mutex.Lock()
	watcher := fm.watcher
	if watcher == nil {
		fm.mutex.Unlock()
		return errors.New("file monitor is not running")
	}
	close(fm.stopCh)
	fm.watcher = nil
	for name, timer := range fm.pending {
		timer.Stop()
		delete(fm.pending, name)
	}
	fm.mutex.Unlock()

	fm.wg.Wait()
	return watcher.Close()
}

func (fm *FileMonitor) watchLoop(watcher *fsnotify.Watcher, stopCh chan struct{}) {
	defer fm.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			fm.schedule(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

// schedule delays event until no other event for the same file arrived
// within the debounce window; the last event wins.
func (fm *FileMonitor) schedule(event fsnotify.Event) {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if timer, ok := fm.pending[event.Name]; ok {
		timer.Stop()
	}
	fm.pending[event.Name] = time.AfterFunc(fm.debounce, func() {
		fm.mutex.Lock()
		delete(fm.pending, event.Name)
		groups := make([]*FileGroup, 0, len(fm.groups))
		for _, group := range fm.groups {
			groups = append(groups, group)
		}
		fm.mutex.Unlock()

		for _, group := range groups {
			group.HandleEvent(event)
		}
	})
}
