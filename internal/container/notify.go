package container

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"stablesats/infrastructure/logger"
)

// 未设置 NOTIFY_SOCKET 时 SdNotify 为空操作
func notifyReady(l *logger.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		l.LogError(err, map[string]interface{}{"action": "sd_notify_ready"})
	}
}

func notifyStopping(l *logger.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		l.LogError(err, map[string]interface{}{"action": "sd_notify_stopping"})
	}
}

func runWatchdog(ctx context.Context, l *logger.Logger, healthy func() error) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		l.LogError(err, map[string]interface{}{"action": "sd_watchdog"})
		return
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := healthy(); err != nil {
				l.Warn("skip watchdog ping: " + err.Error())
				continue
			}
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				l.LogError(err, map[string]interface{}{"action": "sd_watchdog_ping"})
			}
		}
	}
}
