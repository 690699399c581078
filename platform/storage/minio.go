package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"speech-dojo/platform/config"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/minio/minio-go/v7/pkg/credentials"
)

var MinioClient *minio.Client
var publicEndpoint string
var ctx = context.Background()

func ConnectMinio() {
	cfg := config.LoadConfig()

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})

	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}

	MinioClient = client

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	publicEndpoint = fmt.Sprintf("%s://%s", scheme, cfg.MinioEndpoint)

	log.Println("Connected to MinIO storage")

	EnsureBucketExists(cfg.MinioBucket)
}

// EnsureBucketExists ensures a bucket exists, creating it if necessary
func EnsureBucketExists(bucketName string) {
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Printf("Error checking bucket %s: %v", bucketName, err)
		return
	}

	if !exists {
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Printf("Error creating bucket %s: %v", bucketName, err)
			return
		}
		log.Printf("Created bucket: %s", bucketName)
	}
}

// UploadAudio stores a session recording and returns its storage URL.
func UploadAudio(bucketName, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := MinioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(publicEndpoint, "/"), bucketName, objectName), nil
}

func GetAudioFile(bucketName, objectName string) (*minio.Object, error) {
	return MinioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}

func GetAudioFileURL(bucketName, objectName string, expiry time.Duration) (string, error) {
	u, err := MinioClient.PresignedGetObject(ctx, bucketName, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// FetchAudioBytes reads a stored recording back into memory by its
// storage URL ("scheme://endpoint/bucket/object...").
func FetchAudioBytes(c context.Context, storageURL string) ([]byte, error) {
	bucketName, objectName, err := splitStorageURL(storageURL)
	if err != nil {
		return nil, err
	}

	obj, err := MinioClient.GetObject(c, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitStorageURL(storageURL string) (string, string, error) {
	u, err := url.Parse(storageURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid storage url %q: %w", storageURL, err)
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("storage url %q has no bucket/object path", storageURL)
	}
	return parts[0], parts[1], nil
}

// ObjectFetcher adapts the package-level fetch to the interface the
// finalization path consumes.
type ObjectFetcher struct{}

func (ObjectFetcher) FetchBytes(c context.Context, storageURL string) ([]byte, error) {
	return FetchAudioBytes(c, storageURL)
}
