package app

import (
	"context"
	"io"

	"ylabs/internal/integration/directory"
	"ylabs/internal/integration/mail"
)

// Transactor runs fn inside a store transaction. The ctx handed to fn must
// be used for every repository call that belongs to the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Sequential runs fn directly. Used when the store has no transaction support.
type Sequential struct{}

func (Sequential) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Directory interface {
	Lookup(ctx context.Context, netid string) (*directory.Person, error)
}

type Notifier interface {
	Send(ctx context.Context, msg mail.Message) error
}

type ResumeStore interface {
	// Save writes the file and returns the public URL it is served under.
	Save(ctx context.Context, ext string, content io.Reader) (string, error)
	// Remove deletes a file previously returned by Save.
	Remove(ctx context.Context, url string) error
}
