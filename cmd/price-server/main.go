package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stablesats/config"
	"stablesats/infrastructure/logger"
	"stablesats/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/price-server.yaml", "配置文件路径")
	watch := flag.Bool("watch", true, "配置文件变更时重启组件")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := logger.New(logger.DefaultConfig())
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer lg.Close()

	for {
		restart, err := runOnce(ctx, *cfgPath, *watch, lg)
		if err != nil {
			log.Fatalf("price server: %v", err)
		}
		if !restart {
			return
		}
		lg.Info("config changed, restarting components")
	}
}

// runOnce 运行一轮容器；配置变更返回 restart=true，收到信号返回 false。
func runOnce(ctx context.Context, cfgPath string, watch bool, lg *logger.Logger) (bool, error) {
	c, err := container.New(cfgPath)
	if err != nil {
		return false, err
	}
	if err := c.Build(ctx); err != nil {
		_ = c.Stop()
		return false, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Stop()
		return false, err
	}
	defer c.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.RunWatchdog(runCtx)

	changed := make(chan struct{}, 1)
	if watch {
		w, err := config.NewWatcher(cfgPath, 2*time.Second, lg)
		if err != nil {
			return false, err
		}
		go func() {
			_ = w.Run(runCtx, func(config.AppConfig) {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		}()
	}

	select {
	case <-ctx.Done():
		return false, nil
	case <-changed:
		return true, nil
	}
}
