package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func newPhotoFixture(t *testing.T, cfg PhotoConfig) (*PhotoService, *fakeBucket, *mock.EmployeeRepository, *models.Employee) {
	t.Helper()
	repo := mock.NewEmployeeRepository(nil)
	e := &models.Employee{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), e))

	bucket := &fakeBucket{}
	svc := NewPhotoService(bucket, repo, cfg)
	svc.SetClock(func() time.Time { return time.Unix(1700000000, 0) })
	return svc, bucket, repo, e
}

func TestPhotoUpload(t *testing.T) {
	svc, bucket, repo, e := newPhotoFixture(t, PhotoConfig{Bucket: "employee-photos", Region: "eu-central-1"})

	url, err := svc.Upload(context.Background(), actorWith(models.RoleOperator, models.StatusActive), e.ID, "me.JPG", 5, strings.NewReader("image"))
	require.NoError(t, err)

	key := e.ID.String() + "_1700000000.jpg"
	assert.Equal(t, "https://employee-photos.s3.eu-central-1.amazonaws.com/"+key, url)
	require.Len(t, bucket.inputs, 1)
	assert.Equal(t, key, aws.ToString(bucket.inputs[0].Key))
	assert.Equal(t, "image/jpeg", aws.ToString(bucket.inputs[0].ContentType))
	assert.Equal(t, "image", bucket.bodies[0])

	stored, err := repo.FindByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.PhotoURL)
}

func TestPhotoUpload_PublicBaseURL(t *testing.T) {
	svc, _, _, e := newPhotoFixture(t, PhotoConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com/photos/"})

	url, err := svc.Upload(context.Background(), actorWith(models.RoleAdmin, models.StatusActive), e.ID, "a.png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/"+e.ID.String()+"_1700000000.png", url)
}

func TestPhotoUpload_Rejections(t *testing.T) {
	svc, bucket, _, e := newPhotoFixture(t, PhotoConfig{Bucket: "b", Region: "r"})
	ctx := context.Background()
	op := actorWith(models.RoleOperator, models.StatusActive)

	_, err := svc.Upload(ctx, actorWith(models.RoleViewer, models.StatusActive), e.ID, "a.png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = svc.Upload(ctx, op, e.ID, "a.exe", 3, strings.NewReader("exe"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upload(ctx, op, e.ID, "a.png", MaxPhotoBytes+1, strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upload(ctx, op, uuid.New(), "a.png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, bucket.inputs)
}

func TestPhotoUpload_StorageFailure(t *testing.T) {
	svc, bucket, repo, e := newPhotoFixture(t, PhotoConfig{Bucket: "b", Region: "r"})
	bucket.err = errors.New("503 slow down")

	_, err := svc.Upload(context.Background(), actorWith(models.RoleAdmin, models.StatusActive), e.ID, "a.png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, repo.Calls["SetPhotoURL"])
}
