package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"stablesats/infrastructure/logger"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			// 启动失败，回滚已启动的组件
			for j := i - 1; j >= 0; j-- {
				m.components[j].Stop()
			}
			return fmt.Errorf("start component %d failed: %w", i, err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	// 逆序停止
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// httpServerComponent HTTP服务器组件。Start 同步绑定端口，端口占用时直接失败并触发回滚。
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger
	server  **http.Server

	mu       sync.Mutex
	started  bool
	boundTo  net.Addr
	serveErr error
}

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("%s listen on %s: %w", h.name, h.addr, err)
	}
	srv := &http.Server{
		Addr:    h.addr,
		Handler: h.handler,
	}
	*h.server = srv
	h.boundTo = ln.Addr()
	h.serveErr = nil

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "serve",
			})
			h.mu.Lock()
			h.serveErr = err
			h.mu.Unlock()
		}
	}()

	h.logger.Logger.Info(fmt.Sprintf("%s listening on %s", h.name, h.boundTo))
	h.started = true
	return nil
}

// listenAddr 返回实际绑定的地址（addr 端口为 0 时有用）
func (h *httpServerComponent) listenAddr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.boundTo
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || *h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := (*h.server).Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Logger.Info(fmt.Sprintf("%s stopped", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	if h.serveErr != nil {
		return fmt.Errorf("%s serve failed: %w", h.name, h.serveErr)
	}
	return nil
}

// runnerComponent 在后台 goroutine 中运行 run(ctx)，Stop 时取消并等待退出
type runnerComponent struct {
	name   string
	logger *logger.Logger
	run    func(ctx context.Context) error
	health func() error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *runnerComponent) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		if err := r.run(runCtx); err != nil {
			r.logger.LogError(err, map[string]interface{}{
				"component": r.name,
				"action":    "run",
			})
		}
	}()
	r.logger.Logger.Info(fmt.Sprintf("%s started", r.name))
	return nil
}

func (r *runnerComponent) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return nil
	}
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("%s did not stop in time", r.name)
	}
	r.cancel = nil
	r.logger.Logger.Info(fmt.Sprintf("%s stopped", r.name))
	return nil
}

func (r *runnerComponent) Health() error {
	r.mu.Lock()
	started := r.cancel != nil
	r.mu.Unlock()

	if !started {
		return fmt.Errorf("%s not started", r.name)
	}
	if r.health != nil {
		return r.health()
	}
	return nil
}
