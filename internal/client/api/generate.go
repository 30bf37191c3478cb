package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/atinyakov/GophCards/internal/models"
)

// GenerateRequest is one PDF submission. Exactly one of CollectionID or
// CollectionName is expected to be set; the upload package enforces that.
type GenerateRequest struct {
	// FileName is the name reported for the uploaded document.
	FileName string
	// File is the PDF content.
	File io.Reader
	// CollectionID targets an existing collection.
	CollectionID string
	// CollectionName creates a new collection with this name.
	CollectionName string
	// IsPublic is the visibility of a new collection.
	IsPublic bool
}

// Generate uploads a PDF and returns the collection that received the
// generated flashcards.
func (c *Client) Generate(ctx context.Context, token string, gr GenerateRequest) (models.Collection, error) {
	if token == "" {
		return models.Collection{}, fmt.Errorf("generate: %w", ErrAuth)
	}

	var buf bytes.Buffer
	contentType, err := gr.writeForm(&buf)
	if err != nil {
		return models.Collection{}, fmt.Errorf("generate: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathGenerate, token, &buf)
	if err != nil {
		return models.Collection{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var resp struct {
		Collection models.Collection `json:"collection"`
	}
	if err := c.send(c.upload, req, &resp); err != nil {
		return models.Collection{}, err
	}
	if resp.Collection.ID == "" {
		return models.Collection{}, fmt.Errorf("generate: %w: response carried no collection", ErrTransient)
	}
	return resp.Collection, nil
}

// writeForm encodes gr as multipart form data into w and returns the
// matching Content-Type.
func (gr GenerateRequest) writeForm(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	part, err := mw.CreateFormFile("pdf", gr.FileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, gr.File); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	fields := [][2]string{{"collectionId", gr.CollectionID}}
	if gr.CollectionID == "" {
		fields = [][2]string{
			{"collectionName", gr.CollectionName},
			{"isPublic", strconv.FormatBool(gr.IsPublic)},
		}
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}
	return mw.FormDataContentType(), nil
}
