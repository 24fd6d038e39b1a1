package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RendaniXcode/moneypro/src/logger"
)

// HTTPStore uploads objects with pre-authorized PUT requests against a
// storage gateway endpoint.
type HTTPStore struct {
	endpoint string
	bucket   string
	region   string
	apiKey   string
	client   *http.Client
}

func NewHTTPStore(endpoint, bucket, region, apiKey string) *HTTPStore {
	return &HTTPStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		bucket:   bucket,
		region:   region,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// MakeObjectKey builds a collision-free destination key: optional folder
// prefix, millisecond timestamp, original name with whitespace collapsed to
// underscores.
func MakeObjectKey(folder, name string) string {
	clean := strings.Join(strings.Fields(name), "_")
	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), clean)
	if folder != "" {
		return folder + "/" + key
	}
	return key
}

func (s *HTTPStore) Upload(ctx context.Context, key, contentType string, size int64, body io.Reader, progress ProgressFunc) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("%w: storage bucket not configured", ErrTransferFailed)
	}

	reader := body
	if progress != nil && size > 0 {
		reader = &progressReader{r: body, total: size, report: progress}
	}

	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: upload failed with status %d", ErrTransferFailed, resp.StatusCode)
	}

	if progress != nil {
		progress(100)
	}
	logger.L.Debug("Object stored", "key", key, "size", size)
	return s.ObjectURL(key), nil
}

func (s *HTTPStore) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: delete failed with status %d", ErrTransferFailed, resp.StatusCode)
	}
	return nil
}

// ObjectURL returns the permanent URL of a stored object.
func (s *HTTPStore) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// progressReader reports cumulative read progress as a percentage of the
// declared size.
type progressReader struct {
	r      io.Reader
	total  int64
	seen   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.seen += int64(n)
		percent := int(p.seen * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent > p.last {
			p.last = percent
			p.report(percent)
		}
	}
	return n, err
}
