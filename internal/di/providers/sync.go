package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	"github.com/booktrackerapp/booktracker-server/internal/config"
	"github.com/booktrackerapp/booktracker-server/internal/logger"
	"github.com/booktrackerapp/booktracker-server/internal/mirror"
	libsync "github.com/booktrackerapp/booktracker-server/internal/sync"
)

// MirrorHandle wraps the remote mirror with shutdown capability.
type MirrorHandle struct {
	mirror.Mirror
}

// Shutdown implements do.Shutdownable.
func (h *MirrorHandle) Shutdown() error {
	return h.Close()
}

// ProvideMirror provides the remote mirror backend selected by configuration.
func ProvideMirror(i do.Injector) (*MirrorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Remote.Provider {
	case "surrealdb":
		m, err := mirror.NewSurrealMirror(mirror.SurrealConfig{
			URL:       cfg.Remote.URL,
			Namespace: cfg.Remote.Namespace,
			Database:  cfg.Remote.Database,
			Username:  cfg.Remote.Username,
			Password:  cfg.Remote.Password,
			Timeout:   cfg.Remote.Timeout,
		}, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to remote mirror: %w", err)
		}
		log.Info("Remote mirror connected",
			"provider", "surrealdb",
			"url", cfg.Remote.URL,
			"namespace", cfg.Remote.Namespace,
			"database", cfg.Remote.Database,
		)
		return &MirrorHandle{Mirror: m}, nil
	case "memory":
		log.Info("Remote mirror running in-memory", "provider", "memory")
		return &MirrorHandle{Mirror: mirror.NewMemoryMirror()}, nil
	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Remote.Provider)
	}
}

// AuthManagerHandle wraps the auth manager with shutdown capability.
type AuthManagerHandle struct {
	*auth.Manager
}

// Shutdown implements do.Shutdownable.
func (h *AuthManagerHandle) Shutdown() error {
	h.Manager.Close()
	return nil
}

// ProvideAuthManager provides the identity manager.
func ProvideAuthManager(i do.Injector) (*AuthManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &AuthManagerHandle{Manager: auth.NewManager(log.Logger)}, nil
}

// CoordinatorHandle wraps the sync coordinator with its run loop for lifecycle management.
type CoordinatorHandle struct {
	*libsync.Coordinator
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CoordinatorHandle) Shutdown() error {
	h.cancel()
	select {
	case <-h.Done():
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideCoordinator provides the sign-in synchronization coordinator.
func ProvideCoordinator(i do.Injector) (*CoordinatorHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mirrorHandle := do.MustInvoke[*MirrorHandle](i)
	authHandle := do.MustInvoke[*AuthManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	// The coordinator emits through the same fan-out as the store, so
	// reconciliation events reach the UI stream and the search indexer alike.
	coordinator := libsync.NewCoordinator(storeHandle.Store, mirrorHandle.Mirror, authHandle.Manager, storeHandle.Emitters, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go coordinator.Run(ctx)

	log.Info("Sync coordinator started")

	return &CoordinatorHandle{
		Coordinator: coordinator,
		cancel:      cancel,
	}, nil
}
