package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/logging"
)

// Store is the external blob-store capability the resolver depends on.
// common.S3 satisfies it; tests substitute fakes.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// RefKind classifies a clip source reference.
type RefKind int

const (
	// RefStorageKey is a bare object key in the asset store.
	RefStorageKey RefKind = iota
	// RefAuthorizedURL is a short-lived presigned URL; fetch failures are
	// retried once with a freshly issued authorization.
	RefAuthorizedURL
	// RefPublicURL is a plain public URL fetched directly, no authorization.
	RefPublicURL
)

// Classify determines how a source reference must be fetched.
func Classify(ref string) RefKind {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return RefStorageKey
	}
	u, err := url.Parse(ref)
	if err != nil {
		return RefPublicURL
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") != "" || q.Get("X-Amz-Credential") != "" || q.Get("Signature") != "" {
		return RefAuthorizedURL
	}
	return RefPublicURL
}

// Resolver fetches referenced media into a job workspace and stores
// rendered output back. It is stateless across jobs.
type Resolver struct {
	store  Store
	client *http.Client
	logger zerolog.Logger
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:  store,
		client: &http.Client{Timeout: config.AssetFetchTimeout},
		logger: logging.WithComponent("assets"),
	}
}

// Fetch downloads one source reference to destPath. For authorized URLs a
// failure plausibly caused by URL staleness triggers exactly one retry with
// a regenerated authorization before the error becomes fatal.
func (r *Resolver) Fetch(ctx context.Context, ref, destPath string) error {
	switch Classify(ref) {
	case RefStorageKey:
		if r.store == nil {
			return fmt.Errorf("no asset store configured for storage key %s", ref)
		}
		body, err := r.store.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to fetch %s from store: %w", ref, err)
		}
		defer body.Close()
		return writeFile(destPath, body)

	case RefPublicURL:
		if err := r.download(ctx, ref, destPath); err != nil {
			return fmt.Errorf("failed to download public asset: %w", err)
		}
		return nil

	case RefAuthorizedURL:
		err := r.download(ctx, ref, destPath)
		if err == nil {
			return nil
		}
		if r.store == nil {
			return fmt.Errorf("authorized URL fetch failed with no store to refresh it: %w", err)
		}
		key := keyFromURL(ref, r.store.Bucket())
		r.logger.Warn().Err(err).Str("key", key).Msg("authorized URL fetch failed, refreshing authorization")

		// A missing object cannot be fixed by a fresh authorization
		if ok, eerr := r.store.Exists(ctx, key); eerr == nil && !ok {
			return fmt.Errorf("object %s behind authorized URL no longer exists: %w", key, err)
		}

		fresh, perr := r.store.Presign(ctx, key, config.PresignExpiry)
		if perr != nil {
			return fmt.Errorf("failed to refresh authorization for %s: %w", key, perr)
		}
		if err := r.download(ctx, fresh, destPath); err != nil {
			return fmt.Errorf("failed to download %s after authorization refresh: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("unreachable reference kind for %q", ref)
}

// FetchAll downloads every distinct reference concurrently into dir and
// returns a map from reference to local path. Any failure aborts the whole
// batch; normalization needs the full media set in hand.
func (r *Resolver) FetchAll(ctx context.Context, refs []string, dir string) (map[string]string, error) {
	local := make(map[string]string, len(refs))
	seen := make(map[string]bool, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		ref := ref
		dest := filepath.Join(dir, LocalName(ref))
		local[ref] = dest

		g.Go(func() error {
			return r.Fetch(ctx, ref, dest)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return local, nil
}

// Upload stores the rendered file under key and returns a fresh read URL
// for the stored object.
func (r *Resolver) Upload(ctx context.Context, key, filePath string) (string, error) {
	if r.store == nil {
		return "", fmt.Errorf("no asset store configured for upload")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open render for upload: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "video/mp4"
	}

	if err := r.store.Put(ctx, key, f, contentType); err != nil {
		return "", fmt.Errorf("failed to upload render to %s: %w", key, err)
	}

	u, err := r.store.Presign(ctx, key, config.PresignExpiry)
	if err != nil {
		// Keep the bucket consistent with the returned error
		if derr := r.store.Delete(ctx, key); derr != nil {
			r.logger.Warn().Err(derr).Str("key", key).Msg("failed to remove orphaned upload")
		}
		return "", fmt.Errorf("failed to presign uploaded render: %w", err)
	}
	return u, nil
}

// LocalName derives a stable, collision-free workspace filename for a
// reference, keeping the original extension so ffmpeg can sniff the format.
func LocalName(ref string) string {
	sum := sha1.Sum([]byte(ref))
	ext := path.Ext(refPath(ref))
	if len(ext) > 5 {
		ext = ""
	}
	return hex.EncodeToString(sum[:8]) + ext
}

func refPath(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		return u.Path
	}
	return ref
}

// keyFromURL recovers the storage key from a presigned URL, accounting for
// path-style addressing where the bucket is the first path segment.
func keyFromURL(ref, bucket string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	key := strings.TrimPrefix(u.Path, "/")
	if bucket != "" && strings.HasPrefix(key, bucket+"/") {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	return key
}

func (r *Resolver) download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	return writeFile(destPath, resp.Body)
}

func writeFile(destPath string, body io.Reader) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, body)
	return err
}
