// Package store persists list items created by clients.
//
// Two implementations are provided: MemoryStore for tests and single-process
// demos, and SQLStore backed by database/sql. SQLStore is used with the
// pure-Go modernc.org/sqlite driver through OpenSQLite.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Item is a persisted list item.
type Item struct {
	ID        int64     `json:"id"`
	List      string    `json:"list"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemStore stores items per list. Implementations must be safe for
// concurrent use.
type ItemStore interface {
	// Create stores a new item at the end of list.
	Create(ctx context.Context, list, title string) (Item, error)

	// List returns the items of list in creation order.
	List(ctx context.Context, list string) ([]Item, error)

	// Close releases resources held by the store.
	Close() error
}

// Sentinel errors returned by stores.
var (
	// ErrEmptyTitle is returned when creating an item with a blank title.
	ErrEmptyTitle = errors.New("store: empty title")

	// ErrEmptyList is returned when the list name is blank.
	ErrEmptyList = errors.New("store: empty list name")

	// ErrTitleTooLong is returned when a title exceeds MaxTitleLength.
	ErrTitleTooLong = errors.New("store: title too long")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// MaxTitleLength is the longest title a store accepts, in bytes.
const MaxTitleLength = 1024

// validate normalizes and checks the arguments of Create.
func validate(list, title string) (string, string, error) {
	list = strings.TrimSpace(list)
	title = strings.TrimSpace(title)
	switch {
	case list == "":
		return "", "", ErrEmptyList
	case title == "":
		return "", "", ErrEmptyTitle
	case len(title) > MaxTitleLength:
		return "", "", ErrTitleTooLong
	}
	return list, title, nil
}
