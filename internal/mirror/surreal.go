package mirror

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
	"github.com/booktrackerapp/booktracker-server/internal/errors"
)

const defaultRequestTimeout = 10 * time.Second

// SurrealConfig holds connection settings for the SurrealDB mirror.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	Timeout   time.Duration
}

// SurrealMirror stores each user's library in SurrealDB over the
// websocket RPC protocol. Each user gets a dedicated table so live
// queries only observe that user's records.
type SurrealMirror struct {
	ws      *surrealdb.WS
	logger  *slog.Logger
	timeout time.Duration
}

var _ Mirror = (*SurrealMirror)(nil)

// NewSurrealMirror dials the database, signs in, and selects the
// configured namespace and database.
func NewSurrealMirror(cfg SurrealConfig, logger *slog.Logger) (*SurrealMirror, error) {
	ws, err := surrealdb.NewWebsocket(cfg.URL)
	if err != nil {
		return nil, errors.RemoteUnavailable("failed to connect to remote store").WithCause(err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	m := &SurrealMirror{ws: ws, logger: logger, timeout: timeout}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := m.rpc(ctx, "signin", map[string]any{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		_ = ws.Close()
		return nil, errors.RemoteUnavailable("remote store sign-in failed").WithCause(err)
	}
	if _, err := m.rpc(ctx, "use", cfg.Namespace, cfg.Database); err != nil {
		_ = ws.Close()
		return nil, errors.RemoteUnavailable("failed to select remote database").WithCause(err)
	}

	return m, nil
}

// rpc issues a single request and waits for its response.
func (m *SurrealMirror) rpc(ctx context.Context, method string, params ...any) (any, error) {
	reqID, err := gonanoid.New(16)
	if err != nil {
		return nil, errors.Internal("failed to generate request id").WithCause(err)
	}

	resCh, errCh := m.ws.Once(reqID, method)
	m.ws.Send(reqID, method, params)

	select {
	case <-ctx.Done():
		// Drain the eventual response so the connection loop is not
		// blocked on a listener nobody reads.
		go func() {
			select {
			case <-resCh:
			case <-errCh:
			}
		}()
		return nil, errors.RemoteUnavailable("remote request canceled").WithCause(ctx.Err())
	case e := <-errCh:
		return nil, errors.RemoteUnavailable("remote request failed").WithCause(e)
	case r := <-resCh:
		return r, nil
	}
}

// sanitizeKey maps an arbitrary identifier onto SurrealDB's record id
// charset. Slashes in catalog ids become underscores, as does anything
// else outside [A-Za-z0-9_].
func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func (m *SurrealMirror) booksTable(userID string) string {
	return "books_" + sanitizeKey(userID)
}

func (m *SurrealMirror) bookThing(userID, bookID string) string {
	return m.booksTable(userID) + ":" + sanitizeKey(bookID)
}

func (m *SurrealMirror) settingsThing(userID string) string {
	return "settings_" + sanitizeKey(userID) + ":profile"
}

// decodeBooks converts a raw RPC result into book records via a JSON
// round trip. The record body carries the original catalog id, so the
// sanitized record key never leaks back out.
func decodeBooks(v any) ([]*domain.Book, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.RemoteUnavailable("failed to decode remote records").WithCause(err)
	}
	var books []*domain.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, errors.RemoteUnavailable("failed to decode remote records").WithCause(err)
	}
	return books, nil
}

// Put upserts a record. The map carries every field explicitly, zero
// values included, so the merge-write always produces the full record.
func (m *SurrealMirror) Put(ctx context.Context, userID string, book *domain.Book) error {
	data := map[string]any{
		"id":          book.ID,
		"title":       book.Title,
		"authors":     book.Authors,
		"isbn":        book.ISBN,
		"coverUrl":    book.CoverURL,
		"publishYear": book.PublishYear,
		"pageCount":   book.PageCount,
		"list":        book.List,
		"dateAdded":   book.DateAdded,
		"notes":       book.Notes,
		"rating":      book.Rating,
		"categories":  book.Categories,
	}
	_, err := m.rpc(ctx, "change", m.bookThing(userID, book.ID), data)
	return err
}

// Remove deletes a record. Deleting an absent record succeeds.
func (m *SurrealMirror) Remove(ctx context.Context, userID, bookID string) error {
	_, err := m.rpc(ctx, "delete", m.bookThing(userID, bookID))
	return err
}

// FetchAll returns the user's full remote collection.
func (m *SurrealMirror) FetchAll(ctx context.Context, userID string) ([]*domain.Book, error) {
	res, err := m.rpc(ctx, "select", m.booksTable(userID))
	if err != nil {
		return nil, err
	}
	return decodeBooks(res)
}

// Subscribe opens a live query on the user's table. SurrealDB delivers
// per-record change notifications; each one triggers a fresh fetch so
// the callback always sees a complete snapshot.
func (m *SurrealMirror) Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (func(), error) {
	table := m.booksTable(userID)

	res, err := m.rpc(ctx, "live", table)
	if err != nil {
		return nil, err
	}
	liveID, ok := res.(string)
	if !ok || liveID == "" {
		return nil, errors.RemoteUnavailable("unexpected live query response")
	}

	notifyCh, notifyErr := m.ws.When(liveID, "notify")

	subCtx, stop := context.WithCancel(context.Background())
	go func() {
		// Initial snapshot, mirroring subscription semantics where the
		// current state is delivered before any change events.
		if books, err := m.fetchSnapshot(subCtx, userID); err == nil {
			onSnapshot(books)
		}

		for {
			select {
			case <-subCtx.Done():
				return
			case e := <-notifyErr:
				if m.logger != nil {
					m.logger.Warn("live query error", "user_id", userID, "error", e)
				}
			case <-notifyCh:
				books, err := m.fetchSnapshot(subCtx, userID)
				if err != nil {
					if m.logger != nil {
						m.logger.Warn("failed to fetch snapshot after remote change", "user_id", userID, "error", err)
					}
					continue
				}
				onSnapshot(books)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			killCtx, killCancel := context.WithTimeout(context.Background(), m.timeout)
			defer killCancel()
			if _, err := m.rpc(killCtx, "kill", liveID); err != nil && m.logger != nil {
				m.logger.Warn("failed to kill live query", "user_id", userID, "error", err)
			}
		})
	}
	return cancel, nil
}

func (m *SurrealMirror) fetchSnapshot(ctx context.Context, userID string) ([]*domain.Book, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.FetchAll(fetchCtx, userID)
}

// PutSettings upserts the user's settings document.
func (m *SurrealMirror) PutSettings(ctx context.Context, userID string, settings *domain.UserSettings) error {
	_, err := m.rpc(ctx, "change", m.settingsThing(userID), map[string]any{
		"categories": settings.Categories,
	})
	return err
}

// FetchSettings returns the user's settings document, empty when the
// user has never written one.
func (m *SurrealMirror) FetchSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	res, err := m.rpc(ctx, "select", m.settingsThing(userID))
	if err != nil {
		return nil, err
	}

	// A record-level select returns a list with at most one element.
	arr, ok := res.([]any)
	if !ok || len(arr) == 0 {
		return &domain.UserSettings{}, nil
	}

	raw, err := json.Marshal(arr[0])
	if err != nil {
		return nil, errors.RemoteUnavailable("failed to decode remote settings").WithCause(err)
	}
	var settings domain.UserSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, errors.RemoteUnavailable("failed to decode remote settings").WithCause(err)
	}
	return &settings, nil
}

// Close shuts down the websocket connection.
func (m *SurrealMirror) Close() error {
	return m.ws.Close()
}
