package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long the agents file must stay quiet before reload.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches the agents file and registers new agents on change.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
	path    string
	errOut  io.Writer
}

// NewReloader creates a file watcher for the server's AgentsPath.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func NewReloader(server *Server) (*Reloader, error) {
	if server.cfg.AgentsPath == "" {
		return nil, fmt.Errorf("no agents file configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	path := filepath.Clean(server.cfg.AgentsPath)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Reloader{
		watcher: watcher,
		server:  server,
		path:    path,
		errOut:  os.Stderr,
	}, nil
}

// Run watches for file changes and reloads agents. Blocks until ctx is
// cancelled. Reloads run on this goroutine, so none starts after Run returns.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce == nil {
					debounce = time.NewTimer(reloadDebounce)
				} else {
					debounce.Reset(reloadDebounce)
				}
				fire = debounce.C
			}

		case <-fire:
			fire = nil
			if ctx.Err() != nil {
				return nil
			}
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(r.errOut, "file watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	added, err := r.server.ReloadAgents()
	if err != nil {
		fmt.Fprintf(r.errOut, "hot-reload: %v\n", err)
	}
	if added > 0 {
		fmt.Fprintf(r.errOut, "hot-reload: registered %d new agent(s)\n", added)
	}
}
