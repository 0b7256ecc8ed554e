package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscribe/soundscribe/config"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(StoreOptions{Config: config.StorageConfig{
		Endpoint:  "localhost:9000",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	}})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestFetchRejectsBadLocator(t *testing.T) {
	store, err := NewStore(StoreOptions{Config: config.StorageConfig{Endpoint: "localhost:9000"}})
	require.NoError(t, err)

	_, err = store.Fetch(context.Background(), "no-slash")
	assert.True(t, apperrors.IsValidation(err))

	err = store.Store(context.Background(), "no-slash", []byte("x"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"missing key", minio.ErrorResponse{Code: "NoSuchKey", Message: "not found"}, apperrors.ErrCodeNotFound},
		{"missing bucket", minio.ErrorResponse{Code: "NoSuchBucket", Message: "not found"}, apperrors.ErrCodeNotFound},
		{"denied", minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}, apperrors.ErrCodeAccessDenied},
		{"bad key id", minio.ErrorResponse{Code: "InvalidAccessKeyId", Message: "denied"}, apperrors.ErrCodeAccessDenied},
		{"throttle", minio.ErrorResponse{Code: "SlowDown", Message: "slow down"}, apperrors.ErrCodeTransient},
		{"network", errors.New("connection reset by peer"), apperrors.ErrCodeTransient},
		{"deadline", context.DeadlineExceeded, apperrors.ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "op")
			assert.Equal(t, tt.want, apperrors.GetCode(got))
		})
	}
}
