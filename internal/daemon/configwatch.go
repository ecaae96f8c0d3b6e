package daemon

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"panemux/internal/config"
)

// configDebounce coalesces the write-then-rename sequence many editors
// perform into a single reload.
const configDebounce = 200 * time.Millisecond

// watchConfig reloads the daemon's configuration on SIGHUP (via ReloadNow)
// or whenever cfgPath changes on disk, debounced so editor saves that emit
// several fs events in quick succession trigger one reload. Errors opening the watcher or reloading the file
// are logged and otherwise ignored; the daemon keeps running on its last
// good config.
func (d *Daemon) watchConfig(ctx context.Context) {
	if d.cfgPath == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("config watch disabled: failed to create fsnotify watcher", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(d.cfgPath); err != nil {
		d.logger.Warn("config watch disabled: failed to watch path", "path", d.cfgPath, "error", err)
		return
	}

	var timer *time.Timer
	reload := func() {
		cfg, err := config.Load(d.cfgPath)
		if err != nil {
			d.logger.Warn("config reload failed, keeping previous config", "error", err)
			return
		}
		d.Reload(cfg)
		d.logger.Info("config reloaded", "path", d.cfgPath)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(configDebounce, reload)
			} else {
				timer.Reset(configDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("config watcher error", "error", err)
		}
	}
}

// ReloadNow reloads configuration from cfgPath immediately, e.g. in
// response to SIGHUP.
func (d *Daemon) ReloadNow() {
	if d.cfgPath == "" {
		return
	}
	cfg, err := config.Load(d.cfgPath)
	if err != nil {
		d.logger.Warn("SIGHUP config reload failed, keeping previous config", "error", err)
		return
	}
	d.Reload(cfg)
	d.logger.Info("config reloaded via SIGHUP", "path", d.cfgPath)
}
