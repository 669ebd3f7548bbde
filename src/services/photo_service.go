package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

// MaxPhotoBytes caps an uploaded profile photo
const MaxPhotoBytes = 5 << 20

var photoContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PhotoConfig locates the bucket and the public URL prefix of stored photos
type PhotoConfig struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

// PhotoService stores employee photos in object storage
type PhotoService struct {
	client    ObjectPutter
	employees repositories.EmployeeRepository
	cfg       PhotoConfig
	now       func() time.Time
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// A non-empty endpoint targets an S3-compatible store with path-style addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewPhotoService creates a new photo service
func NewPhotoService(client ObjectPutter, employees repositories.EmployeeRepository, cfg PhotoConfig) *PhotoService {
	return &PhotoService{client: client, employees: employees, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source used in object keys
func (s *PhotoService) SetClock(now func() time.Time) {
	s.now = now
}

// PhotoKey names the object for an upload: {employeeId}_{unix}.{ext}
func PhotoKey(employeeID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%d.%s", employeeID, at.Unix(), ext)
}

// PublicURL returns the URL under which key is served
func (s *PhotoService) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// Upload stores body as the employee's photo and records its public URL
func (s *PhotoService) Upload(ctx context.Context, actor *models.AdminUser, employeeID uuid.UUID, filename string, size int64, body io.Reader) (string, error) {
	if err := authz.Authorize(authz.ActorFrom(actor), authz.ActionEditEmployee, nil); err != nil {
		return "", err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	contentType, ok := photoContentTypes[ext]
	if !ok {
		return "", NewValidationError("file", "must be a jpg, png, webp or gif image")
	}
	if size <= 0 || size > MaxPhotoBytes {
		return "", NewValidationError("file", fmt.Sprintf("must be between 1 byte and %d MB", MaxPhotoBytes>>20))
	}

	e, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return "", upstream("find employee", err)
	}
	if e == nil {
		return "", ErrNotFound
	}

	key := PhotoKey(employeeID, s.now(), ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		logger := logging.NewLogger("photos")
		logger.Error().Err(err).Str("upstream", "s3").Str("key", key).Msg("photo upload failed")
		return "", upstream("upload photo", err)
	}

	url := s.PublicURL(key)
	updated, err := s.employees.SetPhotoURL(ctx, employeeID, url)
	if err != nil {
		return "", upstream("store photo url", err)
	}
	if !updated {
		return "", ErrNotFound
	}

	logger := logging.NewLogger("photos")
	logger.Info().Str("employee_id", employeeID.String()).Str("key", key).Str("by", actor.Email).Msg("photo uploaded")
	return url, nil
}
