package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/assets"
	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/render"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// Processor drives one edit job end to end: workspace setup, render,
// upload, status tracking and the completion callback.
type Processor struct {
	renderer   *render.Renderer
	resolver   *assets.Resolver
	status     *StatusStore
	client     *http.Client
	logger     zerolog.Logger
	skipUpload bool
}

// New creates a processor. With skipUpload the rendered file is kept
// under the local output directory instead of being pushed to storage.
func New(renderer *render.Renderer, resolver *assets.Resolver, status *StatusStore, skipUpload bool, logger zerolog.Logger) *Processor {
	return &Processor{
		renderer:   renderer,
		resolver:   resolver,
		status:     status,
		client:     &http.Client{Timeout: config.CallbackTimeout},
		logger:     logger.With().Str("component", "processor").Logger(),
		skipUpload: skipUpload,
	}
}

// Process runs a single edit job and returns the delivered video URL or
// local path. The job workspace is temporary and always cleaned up; any
// stage failure fails the whole job and is reported through the status
// store and callback.
func (p *Processor) Process(ctx context.Context, req *timeline.EditRequest) (string, error) {
	log := p.logger.With().Str("edit_id", req.EditID).Logger()

	if err := req.Validate(); err != nil {
		p.finish(ctx, req, "", fmt.Errorf("invalid request: %w", err))
		return "", fmt.Errorf("invalid request: %w", err)
	}

	p.status.Set(ctx, JobStatus{EditID: req.EditID, State: StateProcessing})
	log.Info().
		Int("tracks", len(req.Tracks)).
		Float64("duration", req.Duration).
		Msg("starting edit job")

	dir, err := os.MkdirTemp("", "edit_"+req.EditID+"_")
	if err != nil {
		err = fmt.Errorf("failed to create workspace: %w", err)
		p.finish(ctx, req, "", err)
		return "", err
	}
	defer os.RemoveAll(dir)

	out, err := p.renderer.Render(ctx, &req.Timeline, dir)
	if err != nil {
		p.finish(ctx, req, "", err)
		return "", err
	}

	url, err := p.deliver(ctx, req, out)
	if err != nil {
		p.finish(ctx, req, "", err)
		return "", err
	}

	p.finish(ctx, req, url, nil)
	log.Info().Str("output", url).Msg("edit job complete")
	return url, nil
}

// deliver uploads the render to storage, or copies it into the local
// output directory when uploads are disabled.
func (p *Processor) deliver(ctx context.Context, req *timeline.EditRequest, out string) (string, error) {
	if p.skipUpload {
		if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		dest := filepath.Join(config.OutputDir, fmt.Sprintf("%s.%s", req.EditID, req.Format()))
		if err := copyFile(out, dest); err != nil {
			return "", fmt.Errorf("failed to keep local output: %w", err)
		}
		return dest, nil
	}

	url, err := p.resolver.Upload(ctx, req.OutputKey(), out)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return url, nil
}

// finish records the terminal status and fires the completion callback.
func (p *Processor) finish(ctx context.Context, req *timeline.EditRequest, url string, jobErr error) {
	status := JobStatus{EditID: req.EditID, State: StateCompleted, OutputURL: url}
	cb := timeline.CompletionCallback{EditID: req.EditID, Success: true, EditedVideoURL: url}

	if jobErr != nil {
		p.logger.Error().Err(jobErr).Str("edit_id", req.EditID).Msg("edit job failed")
		status = JobStatus{EditID: req.EditID, State: StateFailed, Error: jobErr.Error()}
		cb = timeline.CompletionCallback{EditID: req.EditID, Success: false, ErrorMessage: jobErr.Error()}
	}

	p.status.Set(ctx, status)

	if req.CallbackURL == "" {
		return
	}
	if err := p.sendCallback(ctx, req.CallbackURL, cb); err != nil {
		p.logger.Error().Err(err).Str("edit_id", req.EditID).Msg("completion callback failed")
	}
}

func (p *Processor) sendCallback(ctx context.Context, url string, cb timeline.CompletionCallback) error {
	body, err := json.Marshal(cb)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// ProcessFromDirectory renders every edit request JSON file in inputDir,
// a few at a time. Individual failures are logged and do not stop the
// batch.
func (p *Processor) ProcessFromDirectory(ctx context.Context, inputDir string) error {
	files, err := filepath.Glob(filepath.Join(inputDir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", inputDir, err)
	}
	if len(files) == 0 {
		p.logger.Info().Str("dir", inputDir).Msg("no edit request files found")
		return nil
	}

	p.logger.Info().Int("count", len(files)).Msg("processing edit batch")

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, config.MaxConcurrentJobs)

	for i, file := range files {
		wg.Add(1)

		go func(idx int, file string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := p.processFile(ctx, file, idx+1, len(files)); err != nil {
				p.logger.Error().Err(err).Str("file", file).Msg("batch job failed")
			}
		}(i, file)
	}

	wg.Wait()
	p.logger.Info().Msg("batch complete")
	return nil
}

func (p *Processor) processFile(ctx context.Context, file string, current, total int) error {
	p.logger.Info().
		Str("file", filepath.Base(file)).
		Int("current", current).
		Int("total", total).
		Msg("processing edit request file")

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	var req timeline.EditRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}

	_, err = p.Process(ctx, &req)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
