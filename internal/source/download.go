package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultReviewBaseURL hosts the review and metadata archives.
	DefaultReviewBaseURL = "https://datarepo.eng.ucsd.edu/mcauley_group/data/amazon_v2"

	// DefaultQABaseURL hosts the Q&A archives.
	DefaultQABaseURL = "https://datarepo.eng.ucsd.edu/mcauley_group/data/amazon/qa"

	// RateLimit caps archive requests per second.
	RateLimit = 2.0

	DefaultConcurrency = 4
	DefaultMaxTries    = 3
	DefaultTimeout     = 30 * time.Minute
)

// ErrDownload indicates a non-retryable HTTP failure.
var ErrDownload = errors.New("download failed")

// Downloader fetches raw archives into a directory, skipping files already present.
type Downloader struct {
	dir           string
	httpClient    *http.Client
	limiter       *rate.Limiter
	reviewBaseURL string
	qaBaseURL     string
	concurrency   int
	maxTries      int
	backoff       time.Duration
	log           *log.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) DownloaderOption {
	return func(d *Downloader) { d.httpClient = hc }
}

// WithBaseURLs overrides the archive hosts (for mirrors and tests).
func WithBaseURLs(review, qa string) DownloaderOption {
	return func(d *Downloader) {
		if review != "" {
			d.reviewBaseURL = review
		}
		if qa != "" {
			d.qaBaseURL = qa
		}
	}
}

// WithConcurrency bounds parallel downloads.
func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithRetry sets attempts per file and the delay between them.
func WithRetry(maxTries int, backoff time.Duration) DownloaderOption {
	return func(d *Downloader) {
		d.maxTries = maxTries
		d.backoff = backoff
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(perSecond float64) DownloaderOption {
	return func(d *Downloader) { d.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) DownloaderOption {
	return func(d *Downloader) { d.log = l }
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		dir:           dir,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(RateLimit), 1),
		reviewBaseURL: DefaultReviewBaseURL,
		qaBaseURL:     DefaultQABaseURL,
		concurrency:   DefaultConcurrency,
		maxTries:      DefaultMaxTries,
		backoff:       2 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrDiscard(d.log)
	return d
}

// URL returns the download URL for category/kind.
func (d *Downloader) URL(category string, kind Kind) string {
	switch kind {
	case Metadata:
		return d.reviewBaseURL + "/metaFiles2/" + FileName(category, kind)
	case QA:
		return d.qaBaseURL + "/" + FileName(category, kind)
	}
	return d.reviewBaseURL + "/categoryFiles/" + FileName(category, kind)
}

// DownloadResult reports what Ensure did.
type DownloadResult struct {
	Downloaded []string `json:"downloaded"`
	Present    []string `json:"present"`
}

type job struct {
	category string
	kind     Kind
}

// Ensure makes every archive of the selection available locally.
func (d *Downloader) Ensure(ctx context.Context, sel catalog.Selection) (*DownloadResult, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating raw directory: %w", err)
	}

	var jobs []job
	for _, c := range sel.Review {
		jobs = append(jobs, job{c, Review}, job{c, Metadata})
	}
	for _, c := range sel.QA {
		jobs = append(jobs, job{c, QA})
	}

	downloaded := make([]bool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			dest := filepath.Join(d.dir, FileName(j.category, j.kind))
			if _, err := os.Stat(dest); err == nil {
				return nil
			}
			if err := d.fetchWithRetry(gctx, d.URL(j.category, j.kind), dest); err != nil {
				return fmt.Errorf("%s %s: %w", j.category, j.kind, err)
			}
			downloaded[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &DownloadResult{Downloaded: []string{}, Present: []string{}}
	for i, j := range jobs {
		name := FileName(j.category, j.kind)
		if downloaded[i] {
			res.Downloaded = append(res.Downloaded, name)
		} else {
			res.Present = append(res.Present, name)
		}
	}
	return res, nil
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url, dest string) error {
	tries := d.maxTries
	if tries <= 0 {
		tries = 1
	}

	var lastErr error
	for i := 0; i < tries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff):
			}
		}
		err := d.fetch(ctx, url, dest)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, ErrNotFound) || errors.Is(err, ErrDownload) {
			return err
		}
		d.log.Warn("download attempt failed", "url", url, "attempt", i+1, "err", err)
		lastErr = err
	}
	return lastErr
}

// fetch downloads url into dest via a temporary file so a partial download
// never looks like a complete archive.
func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	d.log.Info("downloading", "url", url)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %v", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("status %d from %s", resp.StatusCode, url)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d from %s", ErrDownload, resp.StatusCode, url)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
