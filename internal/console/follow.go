package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followPoll backs up fsnotify in case events are missed.
const followPoll = 100 * time.Millisecond

// SpoolFollower streams lines appended to the console spool file while the
// console is still running.
type SpoolFollower struct {
	path    string
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
}

// NewSpoolFollower creates a follower for path. The file does not need to
// exist yet; following waits for the console to create it.
func NewSpoolFollower(path string) (*SpoolFollower, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &SpoolFollower{path: path, watcher: watcher}, nil
}

// Lines returns a channel of spooled lines. It is closed when ctx is done or
// the follower is closed.
func (f *SpoolFollower) Lines(ctx context.Context) <-chan string {
	lines := make(chan string, 100)
	go f.loop(ctx, lines)
	return lines
}

// CopyTo writes every spooled line to w with prefix until ctx is done, then
// drains what the file holds and returns.
func (f *SpoolFollower) CopyTo(ctx context.Context, w io.Writer, prefix string) {
	for line := range f.Lines(ctx) {
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}

func (f *SpoolFollower) loop(ctx context.Context, lines chan<- string) {
	defer close(lines)

	if err := f.waitForFile(ctx); err != nil {
		return
	}
	if err := f.watcher.Add(f.path); err != nil {
		logDebug("[console] watching %s: %v", f.path, err)
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	var offset int64
	for {
		offset = f.readFrom(lines, offset)

		select {
		case <-ctx.Done():
			f.readFrom(lines, offset)
			return
		case _, ok := <-f.watcher.Events:
			if !ok {
				return
			}
		case <-ticker.C:
		case _, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// waitForFile blocks until the spool file exists or ctx is done.
func (f *SpoolFollower) waitForFile(ctx context.Context) error {
	if _, err := os.Stat(f.path); err == nil {
		return nil
	}
	if err := f.watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watching spool directory: %w", err)
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := os.Stat(f.path); err == nil {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if ev.Name == f.path && (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				return nil
			}
		case <-ticker.C:
			if _, err := os.Stat(f.path); err == nil {
				return nil
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// readFrom sends the complete lines after offset and returns the new offset.
// A trailing partial line is left for the next read. Truncation restarts
// from the beginning.
func (f *SpoolFollower) readFrom(lines chan<- string, offset int64) int64 {
	file, err := os.Open(f.path)
	if err != nil {
		return offset
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return offset
		}
		offset += int64(len(line))
		lines <- trimNewline(line)
	}
}

func trimNewline(s string) string {
	s = s[:len(s)-1]
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

// Close stops the follower and releases the watcher.
func (f *SpoolFollower) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.watcher.Close()
}
