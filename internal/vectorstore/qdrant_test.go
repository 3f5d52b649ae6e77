package vectorstore

import (
	"errors"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestQdrantConfigApplyDefaults(t *testing.T) {
	cfg := QdrantConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, qdrant.Distance_Cosine, cfg.Distance)
}

func TestQdrantConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := QdrantConfig{Host: "qdrant.internal", Port: 7000, MaxRetries: 5}
	cfg.ApplyDefaults()

	assert.Equal(t, "qdrant.internal", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestQdrantConfigValidate(t *testing.T) {
	cfg := QdrantConfig{Host: "localhost", Port: 6334}
	require.NoError(t, cfg.Validate())

	bad := QdrantConfig{Host: "localhost", Port: 0}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = QdrantConfig{Port: 6334}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(grpccodes.Unavailable, "server down"), true},
		{"deadline exceeded", status.Error(grpccodes.DeadlineExceeded, "timeout"), true},
		{"aborted", status.Error(grpccodes.Aborted, "conflict"), true},
		{"resource exhausted", status.Error(grpccodes.ResourceExhausted, "rate limit"), true},
		{"not found", status.Error(grpccodes.NotFound, "missing"), false},
		{"invalid argument", status.Error(grpccodes.InvalidArgument, "bad vector"), false},
		{"permission denied", status.Error(grpccodes.PermissionDenied, "no access"), false},
		{"plain error", errors.New("not a grpc error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransientError(tt.err))
		})
	}
}

func TestNewQdrantStoreRequiresEmbedder(t *testing.T) {
	_, err := NewQdrantStore(QdrantConfig{}, nil, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
