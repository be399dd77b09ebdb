package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/config"
	"github.com/booktrackerapp/booktracker-server/internal/logger"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
	"github.com/booktrackerapp/booktracker-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start heartbeats in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
// Emitters is the fan-out the store broadcasts change events through;
// later providers add their own sinks to it.
type StoreHandle struct {
	*store.Store
	Emitters *store.EmitterGroup
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	dbPath := filepath.Join(cfg.Storage.DataPath, "db")
	emitters := store.NewEmitterGroup(sseHandle.Manager)
	db, err := store.New(dbPath, log.Logger, emitters)
	if err != nil {
		return nil, err
	}

	log.Info("Record store initialized", "path", dbPath)

	return &StoreHandle{Store: db, Emitters: emitters}, nil
}
