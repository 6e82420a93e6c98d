package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/logger"
)

func TestWithContextAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "debug", "json")
	defer logger.Initialize("info", "text")

	ctx := logger.WithContext(context.Background(), "user_id", "u-1")
	ctx = logger.WithContext(ctx, "grpc_method", "/x/Y")
	logger.InfoContext(ctx, "hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "u-1", rec["user_id"])
	assert.Equal(t, "/x/Y", rec["grpc_method"])
	assert.Equal(t, "v", rec["k"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "warn", "text")
	defer logger.Initialize("info", "text")

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
