package gstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sudarshan/carebuddy/server/logger"
	"google.golang.org/api/option"
)

const OPERATION_TIMEOUT = 50 * time.Second

var (
	ErrObjectNotExist = storage.ErrObjectNotExist

	logg = logger.NewLogger()
)

// GStorage copies the sqlite database file to and from a cloud storage
// bucket, so a redeployed instance can pick up where the last one left off.
type GStorage struct {
	storageClient *storage.Client
}

func NewGStorage(credentialsFilePath string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(context.Background(), option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(context.Background())
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client}, nil
}

// UploadFile writes the file at filePath to bucket under prefix, keyed by
// the file's base name.
func (gs *GStorage) UploadFile(bucket, prefix, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), OPERATION_TIMEOUT)
	defer cancel()

	object := objectName(prefix, filepath.Base(filePath))
	writer := gs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err = io.Copy(writer, f); err != nil {
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	logg.Infof("Blob %v uploaded to bucket %v", object, bucket)
	return nil
}

// DownloadFile fetches an object from bucket into destFileName. A missing
// object is reported as ErrObjectNotExist so callers can treat a fresh
// deployment differently from a real failure.
func (gs *GStorage) DownloadFile(bucket, prefix, object, destFileName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), OPERATION_TIMEOUT)
	defer cancel()

	reader, err := gs.storageClient.Bucket(bucket).Object(objectName(prefix, object)).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer reader.Close()

	f, err := os.Create(destFileName)
	if err != nil {
		return fmt.Errorf("os.Create: %v", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}

	logg.Infof("Blob %v downloaded to local file %v", object, destFileName)
	return nil
}

func objectName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%v/%v", prefix, name)
}
