package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "engage.db"))
	t.Setenv("LOG_LEVEL", "error")
}

func exec(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out, io.Discard))
	return out.Bytes()
}

func TestRun_SignUpThenRecommend(t *testing.T) {
	setupEnv(t)

	exec(t, "add-opportunity", "-title", "Beach cleanup", "-area", "Environmental", "-date", "2025-06-07")

	var signedUp struct {
		Status  string `json:"status"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(exec(t, "-email", "ada@example.com", "-password", "correct horse",
		"signup", "-name", "Ada"), &signedUp))
	assert.Equal(t, "Ada", signedUp.Profile.Name)

	var ranking struct {
		Personalized bool              `json:"personalized"`
		Matches      []json.RawMessage `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(exec(t, "-email", "ada@example.com", "-password", "correct horse",
		"recommend", "-limit", "5"), &ranking))
	assert.False(t, ranking.Personalized)
	assert.Len(t, ranking.Matches, 1)
}

func TestRun_Errors(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	assert.Error(t, run(ctx, nil, io.Discard, io.Discard), "missing command")
	assert.Error(t, run(ctx, []string{"dance"}, io.Discard, io.Discard))
	assert.Error(t, run(ctx, []string{"add-opportunity"}, io.Discard, io.Discard), "title required")
	assert.Error(t, run(ctx, []string{"add-opportunity", "-title", "x", "-date", "June"}, io.Discard, io.Discard))
	assert.Error(t, run(ctx, []string{"-email", "nobody@example.com", "-password", "whatever1", "profile"},
		io.Discard, io.Discard), "unknown account cannot sign in")
}
