package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-shelf-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves/{list}/books",
		Summary:     "List books on a shelf",
		Description: "Returns the records on one of the three lists, newest first",
		Tags:        []string{"Books"},
	}, s.handleListShelfBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-book",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get a book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-book",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Add a book to a list",
		Description:   "Adds a catalog search result or a manually entered book",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-book",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Remove a book",
		Tags:        []string{"Books"},
	}, s.handleRemoveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "move-book",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}/list",
		Summary:     "Move a book to another list",
		Tags:        []string{"Books"},
	}, s.handleMoveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-book-notes",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}/notes",
		Summary:     "Update a book's notes",
		Tags:        []string{"Books"},
	}, s.handleUpdateNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-book-rating",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}/rating",
		Summary:     "Update a book's rating",
		Tags:        []string{"Books"},
	}, s.handleUpdateRating)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-book-categories",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}/categories",
		Summary:     "Update an owned book's categories",
		Tags:        []string{"Books"},
	}, s.handleUpdateCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-counts",
		Method:      http.MethodGet,
		Path:        "/api/v1/counts",
		Summary:     "Get per-list record counts",
		Tags:        []string{"Books"},
	}, s.handleGetCounts)
}

// === DTOs ===

// ShelfBooksInput identifies a list.
type ShelfBooksInput struct {
	List string `path:"list" enum:"wantToRead,read,own" doc:"List name"`
}

// ShelfBooksOutput contains the records on one list.
type ShelfBooksOutput struct {
	Body struct {
		Books []*domain.Book `json:"books"`
	}
}

// BookIDInput identifies a single record.
type BookIDInput struct {
	ID string `path:"id" maxLength:"128" doc:"Record id"`
}

// BookOutput contains a single record.
type BookOutput struct {
	Body *domain.Book
}

// AddBookInput describes the record to add.
type AddBookInput struct {
	Body service.AddParams
}

// MutationOutput carries the committed record and its sync fate.
type MutationOutput struct {
	Body service.MutationResult
}

// RemoveBookOutput reports whether the removal reached the remote mirror.
type RemoveBookOutput struct {
	Body struct {
		Synced bool `json:"synced"`
	}
}

// MoveBookInput carries the target list.
type MoveBookInput struct {
	BookIDInput
	Body struct {
		List domain.List `json:"list" enum:"wantToRead,read,own" doc:"Target list"`
	}
}

// UpdateNotesInput carries replacement notes.
type UpdateNotesInput struct {
	BookIDInput
	Body struct {
		Notes string `json:"notes" maxLength:"10000" doc:"Notes text, may be empty"`
	}
}

// UpdateRatingInput carries the new rating.
type UpdateRatingInput struct {
	BookIDInput
	Body struct {
		Rating int `json:"rating" minimum:"0" maximum:"5" doc:"Star rating, 0 clears"`
	}
}

// UpdateCategoriesInput carries replacement category labels.
type UpdateCategoriesInput struct {
	BookIDInput
	Body struct {
		Categories []string `json:"categories" maxItems:"2" doc:"Category labels from the user's settings"`
	}
}

// CountsOutput contains per-list record counts.
type CountsOutput struct {
	Body domain.Counts
}

// === Handlers ===

func (s *Server) handleListShelfBooks(ctx context.Context, input *ShelfBooksInput) (*ShelfBooksOutput, error) {
	books, err := s.library.ListByShelf(ctx, domain.List(input.List))
	if err != nil {
		return nil, err
	}

	out := &ShelfBooksOutput{}
	out.Body.Books = books
	if out.Body.Books == nil {
		out.Body.Books = []*domain.Book{}
	}
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.library.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleAddBook(ctx context.Context, input *AddBookInput) (*MutationOutput, error) {
	result, err := s.library.Add(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: *result}, nil
}

func (s *Server) handleRemoveBook(ctx context.Context, input *BookIDInput) (*RemoveBookOutput, error) {
	synced, err := s.library.Remove(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &RemoveBookOutput{}
	out.Body.Synced = synced
	return out, nil
}

func (s *Server) handleMoveBook(ctx context.Context, input *MoveBookInput) (*MutationOutput, error) {
	result, err := s.library.Move(ctx, input.ID, input.Body.List)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: *result}, nil
}

func (s *Server) handleUpdateNotes(ctx context.Context, input *UpdateNotesInput) (*MutationOutput, error) {
	result, err := s.library.UpdateNotes(ctx, input.ID, input.Body.Notes)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: *result}, nil
}

func (s *Server) handleUpdateRating(ctx context.Context, input *UpdateRatingInput) (*MutationOutput, error) {
	result, err := s.library.UpdateRating(ctx, input.ID, input.Body.Rating)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: *result}, nil
}

func (s *Server) handleUpdateCategories(ctx context.Context, input *UpdateCategoriesInput) (*MutationOutput, error) {
	result, err := s.library.UpdateCategories(ctx, input.ID, input.Body.Categories)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: *result}, nil
}

func (s *Server) handleGetCounts(ctx context.Context, _ *struct{}) (*CountsOutput, error) {
	counts, err := s.library.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &CountsOutput{Body: counts}, nil
}
