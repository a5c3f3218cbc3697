package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sidhant-sriv/homie-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bucketName = "property_images"

// Connect opens a mongo client and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// GridFSStore keeps transformed images in a GridFS bucket and serves them
// under BaseURL/api/media/<id>.
type GridFSStore struct {
	bucket    *gridfs.Bucket
	baseURL   string
	transform Transform
}

func NewGridFSStore(db *mongo.Database, baseURL string, t Transform) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket, baseURL: baseURL, transform: t}, nil
}

func (s *GridFSStore) Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error) {
	var buf bytes.Buffer
	if err := s.transform.Apply(r, &buf); err != nil {
		return models.Image{}, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{
		"originalName": filename,
		"contentType":  ContentType,
	})
	id, err := s.bucket.UploadFromStream(uuid.NewString()+".jpg", &buf, opts)
	if err != nil {
		return models.Image{}, fmt.Errorf("upload %s: %w", filename, err)
	}

	publicID := id.Hex()
	return models.Image{URL: s.baseURL + "/api/media/" + publicID, PublicID: publicID}, nil
}

func (s *GridFSStore) Destroy(ctx context.Context, publicID string) error {
	id, err := primitive.ObjectIDFromHex(publicID)
	if err != nil {
		return nil
	}
	if err := s.bucket.DeleteContext(ctx, id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	return nil
}

func (s *GridFSStore) Open(ctx context.Context, publicID string) (io.ReadCloser, string, error) {
	id, err := primitive.ObjectIDFromHex(publicID)
	if err != nil {
		return nil, "", models.NotFound("Image not found")
	}
	stream, err := s.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", models.NotFound("Image not found")
		}
		return nil, "", fmt.Errorf("open %s: %w", publicID, err)
	}
	return stream, ContentType, nil
}
