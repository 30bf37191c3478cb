package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atinyakov/GophCards/internal/models"
)

// OwnedCollections lists the collections owned by the token's user.
func (c *Client) OwnedCollections(ctx context.Context, token string) ([]models.Collection, error) {
	if token == "" {
		return nil, fmt.Errorf("owned collections: %w", ErrAuth)
	}
	var out []models.Collection
	if err := c.doJSON(ctx, http.MethodGet, pathCollections, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PublicCollections lists collections shared by all users. No token needed.
func (c *Client) PublicCollections(ctx context.Context) ([]models.Collection, error) {
	var out []models.Collection
	if err := c.doJSON(ctx, http.MethodGet, pathPublicCollections, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Collection fetches one collection with its ordered flashcards. userID is
// optional; when set it is passed as the userId query parameter. token is
// optional as well and sent when present.
func (c *Client) Collection(ctx context.Context, id, userID, token string) (models.CollectionDetail, error) {
	if id == "" {
		return models.CollectionDetail{}, fmt.Errorf("collection: %w: empty id", ErrNotFound)
	}
	path := pathCollections + "/" + url.PathEscape(id)
	if userID != "" {
		path += "?" + url.Values{"userId": {userID}}.Encode()
	}
	var out models.CollectionDetail
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return models.CollectionDetail{}, err
	}
	return out, nil
}

// CreateCollection creates an empty collection owned by the token's user.
func (c *Client) CreateCollection(ctx context.Context, token string, req models.NewCollectionRequest) (models.Collection, error) {
	var out models.Collection
	if err := c.doJSON(ctx, http.MethodPost, pathCollections, token, req, &out); err != nil {
		return models.Collection{}, err
	}
	return out, nil
}

// AddFlashcards appends cards to an existing collection.
func (c *Client) AddFlashcards(ctx context.Context, token, collectionID string, cards []models.Flashcard) error {
	path := pathCollections + "/" + url.PathEscape(collectionID) + "/cards"
	payload := struct {
		Flashcards []models.Flashcard `json:"flashcards"`
	}{Flashcards: cards}
	return c.doJSON(ctx, http.MethodPost, path, token, payload, nil)
}
