package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
)

const (
	bookPrefix      = "book:"
	bookIndexPrefix = "book:idx:list:"
)

// bookKey builds the primary key for a record.
func bookKey(id string) []byte {
	return []byte(bookPrefix + id)
}

// listIndexKey builds the secondary index key for a record's list membership.
// The index is multi-valued: one key per (list, id) pair, value empty.
func listIndexKey(list domain.List, id string) []byte {
	return []byte(bookIndexPrefix + string(list) + ":" + id)
}

// getBookTxn reads and decodes a record inside an open transaction.
func getBookTxn(txn *badger.Txn, id string) (*domain.Book, error) {
	item, err := txn.Get(bookKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NotFoundf("book %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book key: %w", err)
	}

	var book domain.Book
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &book)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal book: %w", err)
	}
	return &book, nil
}

// setBookTxn encodes and writes a record plus its list index key.
func setBookTxn(txn *badger.Txn, book *domain.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}
	if err := txn.Set(bookKey(book.ID), data); err != nil {
		return fmt.Errorf("failed to set book key: %w", err)
	}
	if err := txn.Set(listIndexKey(book.List, book.ID), nil); err != nil {
		return fmt.Errorf("failed to set list index key: %w", err)
	}
	return nil
}

// AddBook inserts a new record.
// Returns AlreadyExists carrying the existing record's list when the id is
// already present; the existing record is left unchanged.
func (s *Store) AddBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getBookTxn(txn, book.ID)
		if err == nil {
			return errors.AlreadyExistsf("book already on list %s", existing.List).
				WithDetails(map[string]string{"existingList": string(existing.List)})
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		return setBookTxn(txn, book)
	})
	if err != nil {
		return err
	}

	s.emit(sse.NewBookChangedEvent(book.ID, book.List, "added"))
	return nil
}

// GetBook retrieves a record by ID.
// Returns a NotFound error if the record does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		book, err = getBookTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// BookExists reports whether a record is present and, if so, which list it
// is on. Used by the search UI to render "already added" badges.
func (s *Store) BookExists(ctx context.Context, id string) (bool, domain.List, error) {
	book, err := s.GetBook(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, book.List, nil
}

// GetBooksByList returns all records on the given list, ordered by
// DateAdded descending (newest first).
func (s *Store) GetBooksByList(ctx context.Context, list domain.List) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(bookIndexPrefix + string(list) + ":")

	var books []*domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			book, err := getBookTxn(txn, id)
			if err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(books, func(a, b *domain.Book) int {
		if a.DateAdded != b.DateAdded {
			if a.DateAdded > b.DateAdded {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	return books, nil
}

// GetAllBooks returns every record, unordered.
func (s *Store) GetAllBooks(ctx context.Context) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var books []*domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			// Skip index keys.
			if strings.HasPrefix(string(it.Item().Key()), bookIndexPrefix) {
				continue
			}

			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal book: %w", err)
			}
			books = append(books, &book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// UpdateBook applies a field-level change to an existing record and
// persists the full updated record. The read and the write happen inside
// one transaction under the store write lock, so two mutations on the same
// id can never interleave and clobber each other.
// Returns NotFound if the record is absent. The mutator must not change
// the record's ID.
func (s *Store) UpdateBook(ctx context.Context, id string, mutate func(*domain.Book) error) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *domain.Book
	err := s.db.Update(func(txn *badger.Txn) error {
		book, err := getBookTxn(txn, id)
		if err != nil {
			return err
		}

		oldList := book.List
		if err := mutate(book); err != nil {
			return err
		}
		book.ID = id // immutable

		if book.List != oldList {
			if err := txn.Delete(listIndexKey(oldList, id)); err != nil {
				return fmt.Errorf("failed to delete old list index key: %w", err)
			}
		}
		if err := setBookTxn(txn, book); err != nil {
			return err
		}

		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewBookChangedEvent(updated.ID, updated.List, "updated"))
	return updated, nil
}

// RemoveBook deletes a record by ID.
// This operation is idempotent - it does not return an error if the record does not exist.
func (s *Store) RemoveBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		book, err := getBookTxn(txn, id)
		if errors.Is(err, errors.ErrNotFound) {
			// Idempotent - no error if doesn't exist
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(listIndexKey(book.List, id)); err != nil {
			return fmt.Errorf("failed to delete list index key: %w", err)
		}
		if err := txn.Delete(bookKey(id)); err != nil {
			return fmt.Errorf("failed to delete book key: %w", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return err
	}

	if removed {
		s.emit(sse.NewBookChangedEvent(id, "", "removed"))
	}
	return nil
}

// ReplaceAllBooks clears the store and bulk-inserts the given records in a
// single transaction: no reader ever observes a partially cleared store.
// Used only during remote-to-local reconciliation.
func (s *Store) ReplaceAllBooks(ctx context.Context, books []*domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		// Collect keys first: badger iterators don't tolerate writes
		// to the iterated range mid-flight.
		var stale [][]byte

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to clear store: %w", err)
			}
		}

		for _, book := range books {
			if err := setBookTxn(txn, book); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountsByList returns the number of records on each list.
func (s *Store) CountsByList(ctx context.Context) (domain.Counts, error) {
	var counts domain.Counts

	books, err := s.GetAllBooks(ctx)
	if err != nil {
		return counts, err
	}

	for _, book := range books {
		counts.Inc(book.List)
	}
	return counts, nil
}
