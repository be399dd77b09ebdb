package providers

import (
	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/logger"
	"github.com/booktrackerapp/booktracker-server/internal/service"
	"github.com/booktrackerapp/booktracker-server/internal/validation"
)

// ProvideValidator provides the struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideLibraryService provides the library mutation and query service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	coordinatorHandle := do.MustInvoke[*CoordinatorHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, coordinatorHandle.Coordinator, validator, log.Logger), nil
}
