package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RequestHandler serves one request file from the inbox.
type RequestHandler func(path string)

const (
	// settleDefault is the quiet period after the last inbox event before
	// the collected requests are dispatched.
	settleDefault = 200 * time.Millisecond

	// defaultWorkers bounds how many requests wait on the elevator at once.
	defaultWorkers = 4

	// dispatchQueue buffers requests between the watcher and the workers.
	dispatchQueue = 200

	// pollDefault is the scan interval when fsnotify is unavailable.
	pollDefault = 5 * time.Second
)

// isRequestFile reports whether path names a complete request: a .json
// file, not a .tmp still being written.
func isRequestFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp")
}

// dispatcher hands request paths to a fixed set of workers. A worker is
// blocked for a whole press, so the worker count is also the number of
// presses queued on the car at any moment.
type dispatcher struct {
	queue  chan string
	handle RequestHandler
	wg     sync.WaitGroup
}

func startDispatcher(workers int, handle RequestHandler) *dispatcher {
	d := &dispatcher{
		queue:  make(chan string, dispatchQueue),
		handle: handle,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for path := range d.queue {
				d.serve(path)
			}
		}()
	}
	return d
}

// serve runs the handler for one request. A panicking request is reported
// and the worker moves on to the next one.
func (d *dispatcher) serve(path string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "daemon: request %s panicked: %v\n", filepath.Base(path), r)
		}
	}()
	d.handle(path)
}

// submit queues path, giving up when ctx ends first.
func (d *dispatcher) submit(ctx context.Context, path string) bool {
	select {
	case d.queue <- path:
		return true
	case <-ctx.Done():
		return false
	}
}

// stop waits for queued requests to finish.
func (d *dispatcher) stop() {
	close(d.queue)
	d.wg.Wait()
}

// InboxWatcher serves request files as they appear in the inbox. Writers
// should write name.json.tmp and rename it into place; the rename is seen
// as a creation.
type InboxWatcher struct {
	inbox   string
	handle  RequestHandler
	settle  time.Duration
	workers int
}

// NewInboxWatcher creates a watcher for the inbox directory.
func NewInboxWatcher(inbox string, handle RequestHandler) *InboxWatcher {
	return &InboxWatcher{
		inbox:   inbox,
		handle:  handle,
		settle:  settleDefault,
		workers: defaultWorkers,
	}
}

// SetWorkers overrides the number of concurrent requests (minimum 1).
func (w *InboxWatcher) SetWorkers(n int) {
	w.workers = max(n, 1)
}

// Run watches the inbox until ctx is cancelled. Requests that arrive
// together are dispatched in file name order. Requests still settling at
// shutdown stay in the inbox for the next startup scan.
func (w *InboxWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.inbox); err != nil {
		return err
	}

	d := startDispatcher(w.workers, w.handle)
	defer d.stop()

	// Only this goroutine touches pending.
	pending := make(map[string]struct{})
	settle := time.NewTimer(w.settle)
	settle.Stop()
	defer settle.Stop()

	dispatch := func() {
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		clear(pending)
		slices.Sort(batch)
		for _, p := range batch {
			if !d.submit(ctx, p) {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-settle.C:
			dispatch()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isRequestFile(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			settle.Reset(w.settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "daemon: watch %s: %v\n", w.inbox, err)
		}
	}
}

// PollWatcher scans the inbox on a fixed interval, for filesystems without
// inotify support such as NFS. Requests are served one at a time.
type PollWatcher struct {
	inbox    string
	handle   RequestHandler
	interval time.Duration
	served   map[string]bool
}

// NewPollWatcher creates a polling watcher. A zero interval uses the default.
func NewPollWatcher(inbox string, handle RequestHandler, interval time.Duration) *PollWatcher {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		inbox:    inbox,
		handle:   handle,
		interval: interval,
		served:   make(map[string]bool),
	}
}

// Run polls the inbox until ctx is cancelled.
func (w *PollWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan()
		}
	}
}

// scan serves requests not seen before. Names that have left the inbox are
// forgotten, so a new request reusing an ID is served again.
func (w *PollWatcher) scan() {
	paths, err := inboxRequests(w.inbox)
	if err != nil {
		return
	}

	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
		if w.served[p] {
			continue
		}
		w.served[p] = true
		w.handle(p)
	}
	for p := range w.served {
		if !present[p] {
			delete(w.served, p)
		}
	}
}

// ScanInbox serves every request already in the inbox, in file name order.
// Called at startup for requests that arrived while the daemon was down.
func ScanInbox(inbox string, handle RequestHandler) error {
	paths, err := inboxRequests(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, p := range paths {
		handle(p)
	}
	return nil
}

// inboxRequests lists request files in dir, sorted by name.
func inboxRequests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isRequestFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
