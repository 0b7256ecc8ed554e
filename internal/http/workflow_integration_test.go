package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/data"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
	"github.com/soundscribe/soundscribe/internal/service"
)

// memStore is a minimal in-memory object store for workflow tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[locator]
	if !ok {
		return nil, apperrors.NotFoundf("object %s not found", locator)
	}
	return data, nil
}

func (s *memStore) Store(_ context.Context, locator string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[locator] = append([]byte(nil), data...)
	return nil
}

type fixedEngine struct {
	transcript model.Transcript
	err        error
}

func (e *fixedEngine) Transcribe(context.Context, []byte) (model.Transcript, error) {
	if e.err != nil {
		return model.Transcript{}, e.err
	}
	return e.transcript, nil
}

// startWorkflow wires router + executor over a shared registry and returns the
// handler. The executor shuts down with the test.
func startWorkflow(t *testing.T, store *memStore, eng *fixedEngine) http.Handler {
	t.Helper()

	registry := data.NewJobRegistry(data.JobRegistryOptions{})
	jobs, err := service.NewJobService(service.JobServiceOptions{Registry: registry})
	require.NoError(t, err)

	executor, err := service.NewExecutorService(service.ExecutorServiceOptions{
		Registry: registry,
		Store:    store,
		Engine:   eng,
		Config: config.ExecutorConfig{
			Concurrency:  2,
			JobTimeout:   5 * time.Second,
			RetryLimit:   3,
			RetryBackoff: time.Millisecond,
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = executor.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewRouter(RouterServices{Jobs: jobs})
}

// pollStatus polls GET /status/{id} until the job is terminal.
func pollStatus(t *testing.T, handler http.Handler, id string) JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(handler, http.MethodGet, "/status/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp JobStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		if resp.Status.Terminal() {
			return resp
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return JobStatusResponse{}
}

func TestWorkflowSubmitToCompleted(t *testing.T) {
	store := &memStore{objects: map[string][]byte{
		"audio/in.wav": []byte("fake audio"),
	}}
	eng := &fixedEngine{transcript: model.Transcript{Segments: []model.Segment{
		{Start: 0, End: 1.5, Text: " hello"},
		{Start: 1.5, End: 3, Text: " hello"},
		{Start: 3, End: 4, Text: " world"},
	}}}
	handler := startWorkflow(t, store, eng)

	rec := doRequest(handler, http.MethodPost, "/transcribe",
		`{"input_s3_path":"audio/in.wav","output_s3_path":"bucket/out.md"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	status := pollStatus(t, handler, submitted.JobID)
	assert.Equal(t, model.JobStatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, "bucket/out.md", status.Result.OutputPath)
	assert.Nil(t, status.Error)

	// Consecutive identical segments are merged before rendering.
	store.mu.Lock()
	rendered := string(store.objects["bucket/out.md"])
	store.mu.Unlock()
	assert.Equal(t, "0.00-3.00:  hello\n3.00-4.00:  world", rendered)
}

func TestWorkflowSubmitToFailed(t *testing.T) {
	store := &memStore{objects: map[string][]byte{
		"audio/in.wav": []byte("fake audio"),
	}}
	eng := &fixedEngine{err: apperrors.Engine("engine returned status 500")}
	handler := startWorkflow(t, store, eng)

	rec := doRequest(handler, http.MethodPost, "/transcribe",
		`{"input_s3_path":"audio/in.wav","output_s3_path":"bucket/out.md"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	status := pollStatus(t, handler, submitted.JobID)
	assert.Equal(t, model.JobStatusFailed, status.Status)
	assert.Nil(t, status.Result)
	require.NotNil(t, status.Error)
	assert.Equal(t, "EngineError", status.Error.Kind)
}

func TestWorkflowMissingInputObject(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}
	eng := &fixedEngine{}
	handler := startWorkflow(t, store, eng)

	rec := doRequest(handler, http.MethodPost, "/transcribe",
		`{"input_s3_path":"audio/missing.wav","output_s3_path":"bucket/out.md"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	status := pollStatus(t, handler, submitted.JobID)
	assert.Equal(t, model.JobStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Equal(t, "NotFound", status.Error.Kind)
}
