package storage

import (
	"context"

	"github.com/mcoot/callclock/internal/model"
)

// Storage defines the interface for data persistence.
// Only caption configuration is stored; page views are never persisted.
type Storage interface {
	// Caption operations
	SaveCaptionSet(ctx context.Context, set *model.CaptionSet) error
	GetCaptionSet(ctx context.Context, page model.Page) (*model.CaptionSet, error)
	DeleteCaptionSet(ctx context.Context, page model.Page) error
	ListPages(ctx context.Context) ([]model.Page, error)
}
