package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/redskie/bamaco/internal/events"
)

// FileStore keeps every key in one JSON object on disk.
// Reads always go to the file so writes from other processes are seen.
// Writes hold an exclusive lock on a sibling .lock file, so processes
// sharing the file never lose each other's keys.
// Every write made through this store publishes a Change; Watch adds changes
// made by other processes.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	broker *events.Broker[Change]

	mu   sync.Mutex
	last map[string]string

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ Store = (*FileStore)(nil)

// OpenFile opens (or prepares) the store at path, creating its directory
func OpenFile(path string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger.With(slog.String("store", path)),
		broker: events.NewBroker[Change]("localstore", 32, logger),
		done:   make(chan struct{}),
	}
	values, err := s.read()
	if err != nil {
		s.broker.Close()
		return nil, err
	}
	s.last = values
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	return s.mutate(key, func(values map[string]string) bool {
		if old, ok := values[key]; ok && old == value {
			return false
		}
		values[key] = value
		return true
	})
}

func (s *FileStore) Delete(key string) error {
	return s.mutate(key, func(values map[string]string) bool {
		if _, ok := values[key]; !ok {
			return false
		}
		delete(values, key)
		return true
	})
}

// Subscribe registers for change notifications
func (s *FileStore) Subscribe(name string) (*events.Subscriber[Change], func()) {
	return s.broker.Subscribe(name)
}

// Watch starts observing the backing file for writes by other processes.
// It runs until ctx is done or the store is closed.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// watch the directory: atomic renames replace the file inode
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = watcher.Close() }()

		name := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				s.reconcile()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("store watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

// Close stops any watcher and disconnects subscribers
func (s *FileStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	s.broker.Close()
}

// reconcile diffs the file against the last known snapshot and publishes
// a Change for every key that differs
func (s *FileStore) reconcile() {
	s.mu.Lock()
	values, err := s.read()
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("store reload failed", slog.String("error", err.Error()))
		return
	}
	changed := diffKeys(s.last, values)
	s.last = values
	s.mu.Unlock()

	for _, key := range changed {
		s.broker.Publish(Change{Key: key})
	}
}

func (s *FileStore) mutate(key string, fn func(map[string]string) bool) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	changed, err := s.update(fn)
	if err != nil || !changed {
		return err
	}
	s.broker.Publish(Change{Key: key})
	return nil
}

// update runs read, fn and write under both the process mutex and the file
// lock
func (s *FileStore) update(fn func(map[string]string) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return false, fmt.Errorf("lock store: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("store unlock failed", slog.String("error", err.Error()))
		}
	}()

	values, err := s.read()
	if err != nil {
		return false, err
	}
	if !fn(values) {
		return false, nil
	}
	if err := s.write(values); err != nil {
		return false, err
	}
	s.last = maps.Clone(values)
	return true, nil
}

// read loads the file. A missing or unparsable file reads as an empty store.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.Warn("store file unreadable, starting empty", slog.String("error", err.Error()))
		return make(map[string]string), nil
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func diffKeys(before, after map[string]string) []string {
	var keys []string
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			keys = append(keys, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}
