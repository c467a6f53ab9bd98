// Package s3 stores uploaded site media in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/DGISsoft/prodreport/env"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxUploadSize bounds a single media upload.
const MaxUploadSize = 50 << 20

// ObjectAPI is the subset of *s3.Client used by Storage.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Storage struct {
	client ObjectAPI
	bucket string
	log    *zap.Logger
}

func NewStorage(ctx context.Context, cfg env.S3Config, log *zap.Logger) (*Storage, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
	})
	log.Info("s3 storage configured", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
	return WrapClient(client, cfg.Bucket, log), nil
}

func WrapClient(client ObjectAPI, bucket string, log *zap.Logger) *Storage {
	return &Storage{client: client, bucket: bucket, log: log}
}

func mediaPrefix(reportID primitive.ObjectID) string {
	return "reports/" + reportID.Hex() + "/"
}

// MediaKey places an upload under its report: reports/<id>/<uuid><ext>.
func MediaKey(reportID primitive.ObjectID, fileName string) string {
	return mediaPrefix(reportID) + uuid.NewString() + strings.ToLower(path.Ext(fileName))
}

// MediaTypeOf classifies a content type as image or video.
func MediaTypeOf(contentType string) (models.MediaType, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo, true
	}
	return "", false
}

// SizeLabel renders a byte count the way the reporting client shows it.
func SizeLabel(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

// UploadMedia stores one site photo or video and returns its descriptor.
func (s *Storage) UploadMedia(ctx context.Context, reportID primitive.ObjectID, fileName, contentType string, content []byte) (*models.Media, error) {
	kind, ok := MediaTypeOf(contentType)
	if !ok {
		return nil, errs.Validation("unsupported media type %q", contentType)
	}
	if len(content) == 0 {
		return nil, errs.Validation("empty upload")
	}
	if len(content) > MaxUploadSize {
		return nil, errs.Validation("upload exceeds %d bytes", MaxUploadSize)
	}

	key := MediaKey(reportID, fileName)
	if err := s.Upload(ctx, key, content, contentType); err != nil {
		return nil, err
	}
	return &models.Media{
		Name:      path.Base(fileName),
		Type:      kind,
		SizeLabel: SizeLabel(int64(len(content))),
		Key:       key,
	}, nil
}

// ReadMedia returns a file uploaded for reportID. name is the last segment of
// the media key, so one report cannot reach another report's objects.
func (s *Storage) ReadMedia(ctx context.Context, reportID primitive.ObjectID, name string) ([]byte, string, error) {
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return nil, "", errs.Validation("invalid media name %q", name)
	}
	return s.Download(ctx, mediaPrefix(reportID)+name)
}

func (s *Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.Storage(err, "failed to delete object %s", key)
	}
	s.log.Debug("object deleted", zap.String("key", key))
	return nil
}

// Upload writes content under key, replacing any existing object.
func (s *Storage) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errs.Storage(err, "failed to upload object %s", key)
	}

	s.log.Info("object uploaded", zap.String("key", key), zap.String("bucket", s.bucket), zap.Int("bytes", len(content)))
	return nil
}

// Download returns the object body and its content type.
func (s *Storage) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", errs.NotFound("media %s not found", key)
		}
		return nil, "", errs.Storage(err, "failed to download object %s", key)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, "", errs.Storage(err, "failed to read object %s", key)
	}
	return buf.Bytes(), aws.ToString(out.ContentType), nil
}
