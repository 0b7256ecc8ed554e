package service

import (
	"context"
	"sync"

	"github.com/soundscribe/soundscribe/internal/domain/model"
)

// stubStore is an in-memory ObjectStore whose fetch behavior is scripted per
// test: errs are returned in order before the object bytes.
type stubStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	fetchErrs  []error
	storeErrs  []error
	fetchCalls int
	storeCalls int
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}}
}

func (s *stubStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if len(s.fetchErrs) > 0 {
		err := s.fetchErrs[0]
		s.fetchErrs = s.fetchErrs[1:]
		return nil, err
	}
	return s.objects[locator], nil
}

func (s *stubStore) Store(_ context.Context, locator string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	if len(s.storeErrs) > 0 {
		err := s.storeErrs[0]
		s.storeErrs = s.storeErrs[1:]
		return err
	}
	s.objects[locator] = append([]byte(nil), data...)
	return nil
}

func (s *stubStore) object(locator string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[locator]
}

func (s *stubStore) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

// stubEngine returns a fixed transcript or error.
type stubEngine struct {
	mu         sync.Mutex
	transcript model.Transcript
	err        error
	calls      int
}

func (e *stubEngine) Transcribe(_ context.Context, _ []byte) (model.Transcript, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return model.Transcript{}, e.err
	}
	return e.transcript, nil
}

// stubDispatcher records every terminal job it is handed.
type stubDispatcher struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (d *stubDispatcher) Deliver(_ context.Context, job *model.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
}

func (d *stubDispatcher) delivered() []*model.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*model.Job, len(d.jobs))
	copy(out, d.jobs)
	return out
}

// stubSink records delivery attempts and returns scripted errors in order.
type stubSink struct {
	mu        sync.Mutex
	kind      model.TargetKind
	errs      []error
	endpoints []string
	payloads  []model.TerminalPayload
}

func (s *stubSink) Kind() model.TargetKind { return s.kind }

func (s *stubSink) Deliver(_ context.Context, endpoint string, payload model.TerminalPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = append(s.endpoints, endpoint)
	s.payloads = append(s.payloads, payload)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func (s *stubSink) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.endpoints)
}

func (s *stubSink) lastEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.endpoints) == 0 {
		return ""
	}
	return s.endpoints[len(s.endpoints)-1]
}
