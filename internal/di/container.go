// Package di provides dependency injection configuration for the BookTracker server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/catalog"
	"github.com/booktrackerapp/booktracker-server/internal/config"
	"github.com/booktrackerapp/booktracker-server/internal/di/providers"
	"github.com/booktrackerapp/booktracker-server/internal/logger"
	"github.com/booktrackerapp/booktracker-server/internal/search"
	"github.com/booktrackerapp/booktracker-server/internal/service"
	"github.com/booktrackerapp/booktracker-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Remote mirror and synchronization
	do.Provide(injector, providers.ProvideMirror)
	do.Provide(injector, providers.ProvideAuthManager)
	do.Provide(injector, providers.ProvideCoordinator)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchIndexer)

	// Catalog layer
	do.Provide(injector, providers.ProvideGoogleBooksClient)
	do.Provide(injector, providers.ProvideOpenLibraryClient)
	do.Provide(injector, providers.ProvideCatalogService)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideLibraryService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.MirrorHandle](injector)
	_ = do.MustInvoke[*providers.AuthManagerHandle](injector)
	_ = do.MustInvoke[*providers.CoordinatorHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*search.Indexer](injector)

	// Catalog and business services
	_ = do.MustInvoke[*catalog.Service](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}
