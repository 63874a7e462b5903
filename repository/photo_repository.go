package repository

import (
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PhotoRepository stores visitor photos in GridFS.
type PhotoRepository struct {
	bucket *gridfs.Bucket
}

func NewPhotoRepository(bucket *gridfs.Bucket) *PhotoRepository {
	return &PhotoRepository{bucket: bucket}
}

func (r *PhotoRepository) Upload(filename, contentType string, src io.Reader) (primitive.ObjectID, error) {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	id, err := r.bucket.UploadFromStream(filename, src, opts)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to upload photo: %w", err)
	}
	return id, nil
}

// Open returns the file content and its stored name. The caller closes the
// reader.
func (r *PhotoRepository) Open(id primitive.ObjectID) (io.ReadCloser, string, error) {
	stream, err := r.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open photo: %w", err)
	}
	return stream, stream.GetFile().Name, nil
}

func (r *PhotoRepository) Delete(id primitive.ObjectID) error {
	if err := r.bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}
