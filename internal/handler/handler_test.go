package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/handler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// decode unmarshals the recorder body into T.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

// mockRunner implements handler.Runner.
type mockRunner struct {
	code, mode, snippetID string
	filename              string
	result                *executor.ExecutionResult
	err                   error
	uploadErr             error
	maxUpload             int64
}

var _ handler.Runner = (*mockRunner)(nil)

func (m *mockRunner) Execute(_ context.Context, code, mode string) (*executor.ExecutionResult, error) {
	m.code, m.mode = code, mode
	return m.result, m.err
}

func (m *mockRunner) RunSnippet(_ context.Context, id, mode string) (*executor.ExecutionResult, error) {
	m.snippetID, m.mode = id, mode
	return m.result, m.err
}

func (m *mockRunner) Upload(filename string, data []byte) (string, error) {
	m.filename = filename
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	return string(data), nil
}

func (m *mockRunner) MaxUploadBytes() int64 {
	if m.maxUpload == 0 {
		return 1 << 20
	}
	return m.maxUpload
}
