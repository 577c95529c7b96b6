// Package storage ships database snapshots to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/bubble/internal/logger"
)

const backupPrefix = "backups/"

// Client wraps MinIO client with backup-specific functionality
type Client struct {
	mc     *minio.Client
	bucket string
}

// Config holds MinIO connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Snapshotter writes a consistent copy of a database to a file.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string) error
}

// FileInfo represents a stored backup
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewClient creates a new storage client
func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "bubble-backups"
	}

	return &Client{mc: mc, bucket: bucket}, nil
}

// Init creates the backup bucket if it doesn't exist
func (c *Client) Init(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", c.bucket, err)
		}
		logger.Info("bucket created", "bucket", c.bucket)
	}

	return nil
}

// Backup snapshots db, uploads it and keeps only the newest keep backups.
func (c *Client) Backup(ctx context.Context, db Snapshotter, keep int) (string, error) {
	dir, err := os.MkdirTemp("", "bubble-backup-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	now := time.Now().UTC()
	path := filepath.Join(dir, "bubble.db")
	if err := db.Snapshot(ctx, path); err != nil {
		return "", err
	}

	name := BackupName(now)
	info, err := c.mc.FPutObject(ctx, c.bucket, name, path, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", c.bucket, name, err)
	}
	logger.Info("backup uploaded", "bucket", c.bucket, "name", name, "size", info.Size)

	if keep > 0 {
		if err := c.prune(ctx, keep); err != nil {
			logger.Warn("backup prune failed", "error", err)
		}
	}

	return name, nil
}

// List lists stored backups, oldest first
func (c *Client) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	opts := minio.ListObjectsOptions{
		Prefix:    backupPrefix,
		Recursive: true,
	}

	for obj := range c.mc.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", c.bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		files = append(files, FileInfo{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (c *Client) prune(ctx context.Context, keep int) error {
	files, err := c.List(ctx)
	if err != nil {
		return err
	}

	for _, f := range Expired(files, keep) {
		if err := c.mc.RemoveObject(ctx, c.bucket, f.Name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("delete %s/%s: %w", c.bucket, f.Name, err)
		}
		logger.Debug("backup removed", "name", f.Name)
	}

	return nil
}

// Bucket returns the backup bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

// Healthy checks if MinIO is reachable
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.mc.BucketExists(ctx, c.bucket)
	return err == nil
}

// BackupName is the object key for a backup taken at t. Keys sort by time.
func BackupName(t time.Time) string {
	return backupPrefix + "bubble-" + t.UTC().Format("20060102T150405Z") + ".db"
}

// Expired returns the backups beyond the newest keep, given files sorted oldest first.
func Expired(files []FileInfo, keep int) []FileInfo {
	if keep <= 0 || len(files) <= keep {
		return nil
	}
	return files[:len(files)-keep]
}
