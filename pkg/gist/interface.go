package gist

import (
	"context"
)

type Client interface {
	// UpdateFile overwrites one file of the gist and returns the stable
	// raw URL for it.
	UpdateFile(ctx context.Context, filename, content string) (string, error)
}
