// Package service provides the business logic layer the HTTP handlers
// talk to. It validates input, writes to the local record store, and
// hands committed changes to the sync coordinator for best-effort
// propagation to the remote mirror.
package service

import (
	"context"
	"log/slog"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/id"
	"github.com/booktrackerapp/booktracker-server/internal/store"
	libsync "github.com/booktrackerapp/booktracker-server/internal/sync"
	"github.com/booktrackerapp/booktracker-server/internal/validation"
)

// MutationResult pairs a committed local record with its sync fate.
// Synced false never means failure: the local write already happened,
// the record just has not reached the remote mirror yet.
type MutationResult struct {
	Book   *domain.Book `json:"book"`
	Synced bool         `json:"synced"`
}

// AddParams describes a record to add, either picked from catalog search
// results (ID set) or entered by hand (ID empty).
type AddParams struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Authors     []string    `json:"authors"`
	ISBN        string      `json:"isbn"`
	CoverURL    string      `json:"coverUrl"`
	PublishYear int         `json:"publishYear"`
	PageCount   int         `json:"pageCount"`
	List        domain.List `json:"list" validate:"required,oneof=wantToRead read own"`
}

// LibraryService is the one logical store the UI talks to.
type LibraryService struct {
	store       *store.Store
	coordinator *libsync.Coordinator
	validator   *validation.Validator
	logger      *slog.Logger
}

// NewLibraryService creates the library service.
func NewLibraryService(st *store.Store, coordinator *libsync.Coordinator, validator *validation.Validator, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:       st,
		coordinator: coordinator,
		validator:   validator,
		logger:      logger,
	}
}

// Add puts a new record on a list. Manual entries get a generated id and
// DateAdded is always stamped server-side.
func (s *LibraryService) Add(ctx context.Context, params AddParams) (*MutationResult, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	bookID := params.ID
	if bookID == "" {
		generated, err := id.Generate(id.ManualPrefix)
		if err != nil {
			return nil, errors.Internal("failed to generate record id").WithCause(err)
		}
		bookID = generated
	}

	book := &domain.Book{
		ID:          bookID,
		Title:       params.Title,
		Authors:     params.Authors,
		ISBN:        params.ISBN,
		CoverURL:    params.CoverURL,
		PublishYear: params.PublishYear,
		PageCount:   params.PageCount,
		List:        params.List,
		DateAdded:   domain.NowMillis(),
	}
	book.Normalize()

	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}
	if err := s.store.AddBook(ctx, book); err != nil {
		return nil, err
	}

	return s.finishMutation(ctx, book), nil
}

// Move transfers a record to another list.
func (s *LibraryService) Move(ctx context.Context, bookID string, list domain.List) (*MutationResult, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if !list.Valid() {
		return nil, errors.Validationf("unknown list %q", list)
	}

	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		b.List = list
		if list != domain.ListOwn {
			// Categories only apply to owned books.
			b.Categories = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.finishMutation(ctx, book), nil
}

// UpdateNotes replaces a record's notes.
func (s *LibraryService) UpdateNotes(ctx context.Context, bookID, notes string) (*MutationResult, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		b.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.finishMutation(ctx, book), nil
}

// UpdateRating sets a record's star rating. Values outside 0 through 5
// are rejected, not clamped; 0 clears the rating.
func (s *LibraryService) UpdateRating(ctx context.Context, bookID string, rating int) (*MutationResult, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if rating < 0 || rating > domain.MaxRating {
		return nil, errors.Validationf("rating must be between 0 and %d", domain.MaxRating)
	}
	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		b.Rating = rating
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.finishMutation(ctx, book), nil
}

// UpdateCategories replaces a record's category labels. Labels must
// exist in the user's settings and a record carries at most two.
func (s *LibraryService) UpdateCategories(ctx context.Context, bookID string, categories []string) (*MutationResult, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if len(categories) > domain.MaxCategories {
		return nil, errors.Validationf("a book can have at most %d categories", domain.MaxCategories)
	}

	settings, err := s.store.GetUserSettings(ctx)
	if err != nil {
		return nil, err
	}
	for _, label := range categories {
		if !settings.HasCategory(label) {
			return nil, errors.Validationf("unknown category %q", label)
		}
	}

	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		if b.List != domain.ListOwn {
			return errors.Validation("only owned books can be categorized")
		}
		b.Categories = categories
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.finishMutation(ctx, book), nil
}

// Remove deletes a record from the library.
func (s *LibraryService) Remove(ctx context.Context, bookID string) (synced bool, err error) {
	if err := s.checkMutable(); err != nil {
		return false, err
	}
	if err := s.store.RemoveBook(ctx, bookID); err != nil {
		return false, err
	}
	synced = s.coordinator.PropagateRemove(ctx, bookID)
	return synced, nil
}

// Get returns a single record with deleted categories demoted.
func (s *LibraryService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	s.demoteCategories(ctx, book)
	return book, nil
}

// ListByShelf returns a list's records, newest first.
func (s *LibraryService) ListByShelf(ctx context.Context, list domain.List) ([]*domain.Book, error) {
	if !list.Valid() {
		return nil, errors.Validationf("unknown list %q", list)
	}
	books, err := s.store.GetBooksByList(ctx, list)
	if err != nil {
		return nil, err
	}
	if list == domain.ListOwn {
		settings, err := s.store.GetUserSettings(ctx)
		if err == nil {
			for _, b := range books {
				b.Categories = settings.ValidCategories(b.Categories)
			}
		}
	}
	return books, nil
}

// Counts returns per-list record counts for the tab badges.
func (s *LibraryService) Counts(ctx context.Context) (domain.Counts, error) {
	return s.store.CountsByList(ctx)
}

// GetSettings returns the user's settings document.
func (s *LibraryService) GetSettings(ctx context.Context) (*domain.UserSettings, error) {
	return s.store.GetUserSettings(ctx)
}

// UpdateSettings replaces the user's category labels. Records still
// referencing a removed label are demoted lazily at read time rather
// than rewritten here.
func (s *LibraryService) UpdateSettings(ctx context.Context, settings *domain.UserSettings) (synced bool, err error) {
	if err := s.checkMutable(); err != nil {
		return false, err
	}
	seen := make(map[string]struct{}, len(settings.Categories))
	for _, label := range settings.Categories {
		if label == "" {
			return false, errors.Validation("category labels cannot be empty")
		}
		if _, dup := seen[label]; dup {
			return false, errors.Validationf("duplicate category %q", label)
		}
		seen[label] = struct{}{}
	}

	if err := s.store.PutUserSettings(ctx, settings); err != nil {
		return false, err
	}
	return s.coordinator.PropagateSettings(ctx, settings), nil
}

// checkMutable gates mutations while sign-in reconciliation runs.
func (s *LibraryService) checkMutable() error {
	return s.coordinator.CheckMutationsAllowed()
}

// finishMutation propagates a committed write and reports its sync fate.
func (s *LibraryService) finishMutation(ctx context.Context, book *domain.Book) *MutationResult {
	synced := s.coordinator.PropagatePut(ctx, book)
	return &MutationResult{Book: book, Synced: synced}
}

func (s *LibraryService) demoteCategories(ctx context.Context, book *domain.Book) {
	if len(book.Categories) == 0 {
		return
	}
	settings, err := s.store.GetUserSettings(ctx)
	if err != nil {
		return
	}
	book.Categories = settings.ValidCategories(book.Categories)
}
