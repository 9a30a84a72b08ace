package source

import (
	"context"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Source is the interface every collector must implement.
// Collected items carry a dispatch date and no coverage yet.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]dispatch.NewsItem, error)
}
