package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

func TestValidate_BookRatingBounds(t *testing.T) {
	v := New()

	book := domain.Book{ID: "manual-1", List: domain.ListRead}

	// Boundary values 0 and 5 are both accepted.
	book.Rating = 0
	assert.NoError(t, v.Validate(book))
	book.Rating = domain.MaxRating
	assert.NoError(t, v.Validate(book))

	// Out of range is rejected, not clamped.
	book.Rating = 6
	err := v.Validate(book)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	book.Rating = -1
	assert.Error(t, v.Validate(book))
}

func TestValidate_BookCategoriesCapped(t *testing.T) {
	v := New()

	book := domain.Book{ID: "manual-1", List: domain.ListOwn}

	book.Categories = []string{"Sci-Fi", "History"}
	assert.NoError(t, v.Validate(book))

	book.Categories = []string{"Sci-Fi", "History", "Cooking"}
	err := v.Validate(book)
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodeValidation, domainErr.Code)

	// Error details use JSON field names.
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "categories")
}

func TestValidate_BookListMembership(t *testing.T) {
	v := New()

	book := domain.Book{ID: "gbooks:abc", List: "reading"}
	assert.Error(t, v.Validate(book))

	book.List = domain.ListWantToRead
	assert.NoError(t, v.Validate(book))
}
