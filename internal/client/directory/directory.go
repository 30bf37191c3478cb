// Package directory lists the collections visible to the current user,
// split into the owned and the public partitions.
package directory

import (
	"context"
	"sort"

	"github.com/atinyakov/GophCards/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source defines the remote reads the Directory needs.
type Source interface {
	// OwnedCollections returns the collections owned by the token's user.
	OwnedCollections(ctx context.Context, token string) ([]models.Collection, error)
	// PublicCollections returns every shared collection.
	PublicCollections(ctx context.Context) ([]models.Collection, error)
}

// Listing is one snapshot of the directory.
type Listing struct {
	Owned  []models.Collection
	Public []models.Collection
}

// Directory fetches both partitions independently. A failed fetch degrades
// to an empty partition and is only logged.
type Directory struct {
	src Source
	log *zap.Logger
}

// New constructs a Directory over src.
func New(src Source, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{src: src, log: log}
}

// List fetches the owned and public partitions concurrently. Without a token
// the owned partition is empty and no request is made for it.
func (d *Directory) List(ctx context.Context, token string) Listing {
	var (
		out Listing
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Owned = d.ListOwned(ctx, token)
		return nil
	})
	g.Go(func() error {
		out.Public = d.ListPublic(ctx)
		return nil
	})
	_ = g.Wait()
	return out
}

// ListOwned returns the caller's collections, newest first.
func (d *Directory) ListOwned(ctx context.Context, token string) []models.Collection {
	if token == "" {
		return []models.Collection{}
	}
	cs, err := d.src.OwnedCollections(ctx, token)
	if err != nil {
		d.log.Warn("error fetching owned collections", zap.Error(err))
		return []models.Collection{}
	}
	return newestFirst(cs)
}

// ListPublic returns the shared collections, newest first.
func (d *Directory) ListPublic(ctx context.Context) []models.Collection {
	cs, err := d.src.PublicCollections(ctx)
	if err != nil {
		d.log.Warn("error fetching public collections", zap.Error(err))
		return []models.Collection{}
	}
	return newestFirst(cs)
}

func newestFirst(cs []models.Collection) []models.Collection {
	if cs == nil {
		return []models.Collection{}
	}
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
	return cs
}

// Find returns the collection with id from either partition.
func (l Listing) Find(id string) (models.Collection, bool) {
	for _, part := range [][]models.Collection{l.Owned, l.Public} {
		for _, c := range part {
			if c.ID == id {
				return c, true
			}
		}
	}
	return models.Collection{}, false
}
