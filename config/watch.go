package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stablesats/infrastructure/logger"
)

// Watcher 监听配置文件变更。
// 定价参数启动后只读：合法的新配置交给 onChange（通常触发优雅重启），非法的只记录日志。
type Watcher struct {
	path     string
	cooldown time.Duration
	log      *logger.Logger
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time
}

// NewWatcher 监听文件所在目录，以兼容编辑器的 rename-替换写法。
func NewWatcher(path string, cooldown time.Duration, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		cooldown: cooldown,
		log:      log.Named("config_watcher"),
		watcher:  fw,
	}, nil
}

// Run 阻塞直到 ctx 结束或 watcher 被关闭。
func (w *Watcher) Run(ctx context.Context, onChange func(AppConfig)) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handleChange(onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.LogError(err, map[string]interface{}{"action": "watch"})
		}
	}
}

func (w *Watcher) handleChange(onChange func(AppConfig)) {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.cooldown {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.log.LogError(err, map[string]interface{}{"action": "reload", "path": w.path})
		return
	}
	w.log.Info("config changed")
	if onChange != nil {
		onChange(cfg)
	}
}
