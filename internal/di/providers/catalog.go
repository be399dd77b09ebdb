package providers

import (
	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/catalog"
	"github.com/booktrackerapp/booktracker-server/internal/catalog/googlebooks"
	"github.com/booktrackerapp/booktracker-server/internal/catalog/openlibrary"
	"github.com/booktrackerapp/booktracker-server/internal/logger"
)

// ProvideGoogleBooksClient provides the primary catalog provider.
func ProvideGoogleBooksClient(i do.Injector) (*googlebooks.Client, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return googlebooks.NewClient(log.Logger), nil
}

// ProvideOpenLibraryClient provides the fallback catalog provider.
func ProvideOpenLibraryClient(i do.Injector) (*openlibrary.Client, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return openlibrary.NewClient(log.Logger), nil
}

// ProvideCatalogService provides the catalog search service.
func ProvideCatalogService(i do.Injector) (*catalog.Service, error) {
	primary := do.MustInvoke[*googlebooks.Client](i)
	fallback := do.MustInvoke[*openlibrary.Client](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return catalog.NewService(primary, fallback, storeHandle.Store, log.Logger), nil
}
