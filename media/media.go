// Package media stores property images. Uploads are normalised with a fixed
// transformation before they are persisted, and each stored image is
// addressed by an opaque public id that is later used to release it.
package media

import (
	"context"
	"errors"
	"io"

	"github.com/sidhant-sriv/homie-api/models"
)

// ErrUnsupportedImage is returned when an upload cannot be decoded.
var ErrUnsupportedImage = errors.New("unsupported image")

type Store interface {
	Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error)
	// Destroy releases a stored image. Unknown ids are not an error.
	Destroy(ctx context.Context, publicID string) error
	Open(ctx context.Context, publicID string) (io.ReadCloser, string, error)
}
