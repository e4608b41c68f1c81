package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/internal/httpclient"
	"github.com/emberline/curator/record"
)

const (
	maxRetries      = 5
	initialBackoff  = 1 * time.Second
	maxBackoff      = 60 * time.Second
	readBufferBytes = 1 << 20
)

// HTTPSourceConfig wires an HTTPSource. The upstream publishes one
// JSONL file per source under BaseURL.
type HTTPSourceConfig struct {
	BaseURL string
	Files   []string // relative names, e.g. "arxiv.jsonl"
	Token   string   // bearer token, raises the rate tier when set

	// RequestsPerMinute caps outbound requests. Callers pass the
	// authenticated or anonymous tier depending on Token.
	RequestsPerMinute int

	Timeout time.Duration

	// Client overrides the default SaferClient; tests inject a wrapped
	// httptest client here.
	Client *httpclient.SaferClient

	Logger *zap.SugaredLogger
}

// SourceFiles maps source names to their upstream JSONL file names.
func SourceFiles(sources []string) []string {
	files := make([]string, 0, len(sources))
	for _, s := range sources {
		files = append(files, s+".jsonl")
	}
	return files
}

// HTTPSource streams records from per-source JSONL files over HTTP.
// Interrupted transfers resume mid-file with a Range request; servers
// that ignore Range get the consumed prefix discarded instead.
type HTTPSource struct {
	baseURL string
	files   []string
	token   string

	client  *httpclient.SaferClient
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	fileIdx    int
	body       io.ReadCloser
	buf        *bufio.Reader
	byteOffset int64
	line       int

	requestsMade int
}

// NewHTTPSource builds a source over cfg. Rate and client defaults are
// applied for zero values.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 300 * time.Second
		}
		client = httpclient.NewSaferClient(timeout)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.S()
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		files:   cfg.Files,
		token:   cfg.Token,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		log:     log,
	}
}

// Authenticated reports whether a bearer token is in use.
func (s *HTTPSource) Authenticated() bool { return s.token != "" }

// RequestsMade returns the outbound request count, including retries.
func (s *HTTPSource) RequestsMade() int { return s.requestsMade }

// Next returns the next decodable record across all configured files.
func (s *HTTPSource) Next(ctx context.Context) (*record.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.buf == nil {
			if s.fileIdx >= len(s.files) {
				return nil, io.EOF
			}
			if err := s.open(ctx, s.byteOffset); err != nil {
				return nil, err
			}
		}

		line, err := s.buf.ReadBytes('\n')
		switch {
		case err == nil:
			s.byteOffset += int64(len(line))
		case errors.Is(err, io.EOF):
			// Clean end of the current file; the tail chunk may still
			// hold one record without a trailing newline.
			s.closeBody()
			s.fileIdx++
			s.byteOffset = 0
		default:
			// Interrupted mid-file. Drop the partial line and resume
			// from the last complete record boundary.
			s.log.Warnw("Stream interrupted, resuming",
				"file", s.currentFile(),
				"offset", s.byteOffset,
				"error", err,
			)
			s.closeBody()
			if rerr := s.open(ctx, s.byteOffset); rerr != nil {
				return nil, errors.Wrapf(rerr, "failed to resume %s at offset %d", s.currentFile(), s.byteOffset)
			}
			continue
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		s.line++
		rec, derr := record.Decode(trimmed)
		if derr != nil {
			return nil, &RecordError{Line: s.line, Err: derr}
		}
		return rec, nil
	}
}

func (s *HTTPSource) currentFile() string {
	if s.fileIdx < len(s.files) {
		return s.files[s.fileIdx]
	}
	return ""
}

func (s *HTTPSource) closeBody() {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.buf = nil
}

// open connects to the current file with bounded retries. Retryable
// failures (network errors, 429, 5xx) back off exponentially; other
// statuses fail immediately.
func (s *HTTPSource) open(ctx context.Context, offset int64) error {
	name := s.currentFile()
	url := s.baseURL + "/" + name

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			backoff := initialBackoff << (attempt - 2)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			s.log.Debugw("Retrying request",
				"file", name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to build request for %s", url)
		}
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}
		if offset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}

		resp, err := s.client.Do(req)
		s.requestsMade++
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusPartialContent:
			s.attach(resp.Body)
			return nil
		case resp.StatusCode == http.StatusOK:
			if offset > 0 {
				// Server ignored the Range header; skip what we
				// already consumed.
				if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
					resp.Body.Close()
					lastErr = errors.Wrapf(err, "failed to skip %d bytes of %s", offset, name)
					continue
				}
			}
			s.attach(resp.Body)
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = errors.Newf("upstream returned %s for %s", resp.Status, name)
			continue
		default:
			resp.Body.Close()
			return errors.Newf("upstream returned %s for %s", resp.Status, name)
		}
	}

	return errors.Wrapf(lastErr, "giving up on %s after %d attempts", name, maxRetries)
}

func (s *HTTPSource) attach(body io.ReadCloser) {
	s.body = body
	s.buf = bufio.NewReaderSize(body, readBufferBytes)
}

// Close releases any in-flight response body.
func (s *HTTPSource) Close() error {
	s.closeBody()
	return nil
}

var _ Source = (*HTTPSource)(nil)
