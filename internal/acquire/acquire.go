package acquire

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// ErrDeclined means the source has no metadata for the alias. It is not a failure.
var ErrDeclined = errors.New("metadata declined")

// Request describes a book seen for the first time in a batch.
type Request struct {
	Alias string
	// ScanPath is the first inbox file of the alias.
	ScanPath string
}

// Acquirer supplies bibliographic metadata for an alias or ErrDeclined.
type Acquirer interface {
	Acquire(ctx context.Context, req Request) (models.Metadata, error)
}

// Func adapts a function to Acquirer.
type Func func(ctx context.Context, req Request) (models.Metadata, error)

func (f Func) Acquire(ctx context.Context, req Request) (models.Metadata, error) {
	return f(ctx, req)
}

// Chain asks each source in order until one answers. Declines fall through;
// any other error stops the chain.
type Chain []Acquirer

func (c Chain) Acquire(ctx context.Context, req Request) (models.Metadata, error) {
	for _, a := range c {
		meta, err := a.Acquire(ctx, req)
		if errors.Is(err, ErrDeclined) {
			continue
		}
		return meta, err
	}
	return models.Metadata{}, ErrDeclined
}
