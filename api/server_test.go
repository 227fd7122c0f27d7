package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

type fakeRunner struct {
	jobs chan *timeline.EditRequest
}

func (f *fakeRunner) Process(ctx context.Context, req *timeline.EditRequest) (string, error) {
	f.jobs <- req
	return "https://example.com/out.mp4", nil
}

func newTestServer() (*Server, *fakeRunner) {
	gin.SetMode(gin.TestMode)
	runner := &fakeRunner{jobs: make(chan *timeline.EditRequest, 1)}
	return NewServer(runner, nil, zerolog.Nop()), runner
}

const validEdit = `{
	"account_id": "acct-1",
	"generated_content_id": "gen-1",
	"post_index": 0,
	"callback_url": "",
	"duration": 10,
	"aspect_ratio": "9:16",
	"tracks": [
		{
			"id": "t1",
			"clips": [
				{
					"type": "video",
					"id": "v1",
					"src": "clips/a.mp4",
					"start_time": 0,
					"duration": 10
				}
			]
		}
	]
}`

func TestHandleVideoEditAccepted(t *testing.T) {
	server, runner := newTestServer()
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-edit", strings.NewReader(validEdit))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp editResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Errorf("success = false: %+v", resp)
	}
	if resp.EditID == "" {
		t.Error("missing edit id in acknowledgement")
	}

	select {
	case job := <-runner.jobs:
		if job.EditID != resp.EditID {
			t.Errorf("job edit id = %q, ack edit id = %q", job.EditID, resp.EditID)
		}
		if job.AccountID != "acct-1" {
			t.Errorf("account id = %q", job.AccountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job never reached the runner")
	}
}

func TestHandleVideoEditBadJSON(t *testing.T) {
	server, _ := newTestServer()
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-edit", strings.NewReader("{not json"))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleVideoEditValidation(t *testing.T) {
	server, runner := newTestServer()
	router := server.Router()

	// No account id, no tracks
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-edit", strings.NewReader(`{"duration": 5}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	select {
	case <-runner.jobs:
		t.Error("invalid request reached the runner")
	default:
	}
}

func TestHandleStatusUnknown(t *testing.T) {
	server, _ := newTestServer()
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/video-edit/nope/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer()
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
