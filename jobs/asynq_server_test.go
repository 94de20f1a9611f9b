package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

type stubEnqueuer struct {
	payload TBSnapshotPayload
	calls   int
	err     error
}

func (s *stubEnqueuer) EnqueueTBSnapshot(ctx context.Context, payload TBSnapshotPayload) (*asynq.TaskInfo, error) {
	s.calls++
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer SnapshotEnqueuer) chi.Router {
	h := NewHandler(nil, enqueuer, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestEnqueueSnapshotAccepted(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	r := newJobsRouter(enqueuer)

	body := strings.NewReader(`{"startDate":"2025-01-01","endDate":"2025-01-31"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tb-snapshot", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if enqueuer.calls != 1 {
		t.Fatalf("expected one enqueue, got %d", enqueuer.calls)
	}
	if enqueuer.payload.StartDate != "2025-01-01" || enqueuer.payload.EndDate != "2025-01-31" {
		t.Fatalf("payload not forwarded: %+v", enqueuer.payload)
	}
	if !strings.Contains(rec.Body.String(), "task-1") {
		t.Fatalf("expected task id in response, got %s", rec.Body.String())
	}
}

func TestEnqueueSnapshotRejectsBadRange(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	r := newJobsRouter(enqueuer)

	cases := []string{
		`{"startDate":"01/01/2025","endDate":"2025-01-31"}`,
		`{"startDate":"2025-01-01","endDate":"nope"}`,
		`{"startDate":"2025-02-01","endDate":"2025-01-01"}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tb-snapshot", strings.NewReader(body)))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("body %s: expected 422, got %d", body, rec.Code)
		}
	}
	if enqueuer.calls != 0 {
		t.Fatalf("invalid payloads must not enqueue, got %d calls", enqueuer.calls)
	}
}

func TestEnqueueSnapshotWithoutClient(t *testing.T) {
	r := newJobsRouter(nil)

	body := strings.NewReader(`{"startDate":"2025-01-01","endDate":"2025-01-31"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tb-snapshot", body))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a client, got %d", rec.Code)
	}
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := newJobsRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"pending":0`) {
		t.Fatalf("unexpected health body %s", rec.Body.String())
	}
}
