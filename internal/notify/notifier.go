// Package notify watches the workspaces tree and emits debounced,
// classified change notifications.
package notify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/internal/workspace"
)

// Category classifies a raw change path.
type Category int

const (
	// CategoryFiles is any ordinary workspace file change.
	CategoryFiles Category = iota
	// CategoryCapability is a change to MCP server configuration or
	// skill definitions.
	CategoryCapability
)

// String returns the category's wire name.
func (c Category) String() string {
	if c == CategoryCapability {
		return "capability"
	}
	return "files"
}

// Sink receives debounced notifications. Implementations must be safe
// for calls from the notifier goroutine.
type Sink interface {
	CapabilityChanged()
	FilesChanged()
}

// Classify assigns a changed path under the workspaces root to exactly
// one category: capability when it is a workspace's MCP config document
// or sits in (or is) the skills directory directly under a workspace,
// files otherwise. Anchoring on position keeps a workspace that is
// itself slugged "skills", or a user file named like the config, from
// masquerading as a capability change.
func Classify(root, path string) Category {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || rel == ".." {
		return CategoryFiles
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) == 2 && parts[1] == workspace.MCPConfigFilename {
		return CategoryCapability
	}
	if len(parts) >= 2 && parts[1] == workspace.SkillsDirName {
		return CategoryCapability
	}
	return CategoryFiles
}

// timerFactory lets tests substitute the debounce timers.
type timerFactory func(d time.Duration, f func()) *time.Timer

// Notifier watches the workspaces root recursively. Each category has
// an independent debounce window so a flurry of skill edits does not
// delay an unrelated workspace-file notification. Stop guarantees no
// delivery afterwards, including from pending timers.
type Notifier struct {
	root     string
	sink     Sink
	window   time.Duration
	newTimer timerFactory

	mu      sync.Mutex
	running bool
	stopped bool
	timers  map[Category]*time.Timer
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a notifier over the given root with the given debounce
// window. The sink is injected; the notifier holds no ambient state.
func New(root string, sink Sink, window time.Duration) *Notifier {
	return &Notifier{
		root:     root,
		sink:     sink,
		window:   window,
		newTimer: time.AfterFunc,
		timers:   map[Category]*time.Timer{},
	}
}

// Start begins watching. Idempotent: calling Start on a running
// notifier is a no-op.
func (n *Notifier) Start() error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		n.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	n.watcher = fsw
	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.running = true
	n.stopped = false
	n.mu.Unlock()

	if err := n.watchTree(n.root); err != nil {
		log.Warn().Err(err).Str("root", n.root).Msg("Failed to establish initial watches")
	}

	go n.loop(n.ctx, fsw)
	log.Info().Str("root", n.root).Dur("window", n.window).Msg("File-change notifier started")
	return nil
}

// Stop halts watching and cancels pending debounce timers. After Stop
// returns, no further notifications are delivered. Idempotent.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		return nil
	}
	n.running = false
	n.stopped = true
	for cat, timer := range n.timers {
		timer.Stop()
		delete(n.timers, cat)
	}
	n.cancel()
	return n.watcher.Close()
}

// loop drains one watcher instance. The context and watcher are passed
// in so a stop/start cycle cannot race with a loop still draining the
// previous watcher.
func (n *Notifier) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			n.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Notifier watch error")
		}
	}
}

func (n *Notifier) handleEvent(event fsnotify.Event) {
	// fsnotify is not recursive: newly created directories need their
	// own watch before changes inside them are visible.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := n.watchTree(event.Name); err != nil {
				log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	n.bump(Classify(n.root, event.Name))
}

// bump arms (or re-arms) the category's debounce timer. Repeated events
// of the same category collapse into one notification fired only after
// the window elapses with no further events.
func (n *Notifier) bump(cat Category) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		return
	}
	if timer, ok := n.timers[cat]; ok {
		timer.Stop()
	}
	n.timers[cat] = n.newTimer(n.window, func() {
		n.fire(cat)
	})
}

func (n *Notifier) fire(cat Category) {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	delete(n.timers, cat)
	sink := n.sink
	n.mu.Unlock()

	if sink == nil {
		return
	}
	log.Debug().Str("category", cat.String()).Msg("Change notification")
	switch cat {
	case CategoryCapability:
		sink.CapabilityChanged()
	default:
		sink.FilesChanged()
	}
}

// watchTree adds watches for a directory and all of its descendants.
func (n *Notifier) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := n.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
