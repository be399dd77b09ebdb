package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/booktrackerapp/booktracker-server/internal/config"
	"github.com/booktrackerapp/booktracker-server/internal/logger"
	"github.com/booktrackerapp/booktracker-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the local library search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Storage.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideSearchIndexer provides the indexer that follows store change events.
// It reindexes from the store at startup so a fresh or stale index catches up.
func ProvideSearchIndexer(i do.Injector) (*search.Indexer, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	indexer := search.NewIndexer(indexHandle.Index, storeHandle.Store, log.Logger)
	storeHandle.Emitters.Add(indexer)

	if err := indexer.Reindex(context.Background()); err != nil {
		log.Warn("Initial search reindex failed, index may lag until next rebuild", "error", err)
	} else if count, err := indexHandle.DocumentCount(); err == nil {
		log.Info("Search index ready", "documents", count)
	}

	return indexer, nil
}
