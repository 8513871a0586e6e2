package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// candidateExtensions is the fixed probe order when a URL carries no
// recognized image extension. The empty entry means "as given".
var candidateExtensions = []string{"", ".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Fetcher downloads remote images with a bounded timeout. URLs without a
// recognized image extension are probed against a small candidate list,
// accepting the first response that identifies as an image.
type Fetcher struct {
	client  *http.Client
	maxSize int64
	logger  *utils.Logger
}

// NewFetcher constructs a fetcher. A nil client gets a 10 second timeout.
func NewFetcher(client *http.Client, maxSize int64, logger *utils.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Fetcher{
		client:  client,
		maxSize: maxSize,
		logger:  logger,
	}
}

// ValidateURL rejects anything that is not a plain http(s) URL. data: URLs
// must go through the base64 path instead.
func ValidateURL(rawURL string) error {
	if strings.HasPrefix(rawURL, "data:") {
		return platformerrors.New(platformerrors.KindValidation, "fetch",
			"data URLs are not accepted here, submit the payload as base64 input")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindValidation, "fetch", "invalid URL provided", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return platformerrors.New(platformerrors.KindValidation, "fetch",
			fmt.Sprintf("unsupported URL scheme: %s", parsed.Scheme))
	}
	if parsed.Host == "" || parsed.Path == "" {
		return platformerrors.New(platformerrors.KindValidation, "fetch", "invalid URL provided")
	}
	return nil
}

// Fetch downloads the image behind rawURL. It returns the body reader and a
// format hint derived from the response Content-Type. The caller owns the
// reader and must close it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, "", err
	}

	var lastErr error
	for _, candidate := range f.candidateURLs(rawURL) {
		f.logger.DebugTag("IMAGE", "trying URL: %s", candidate)

		body, format, err := f.fetchOnce(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return body, format, nil
	}

	return nil, "", platformerrors.Wrap(
		platformerrors.KindConnectivity,
		"fetch",
		"failed to download image from URL",
		lastErr,
	)
}

// candidateURLs expands rawURL into the probe list. URLs that already end in
// a recognized image extension are fetched as-is only.
func (f *Fetcher) candidateURLs(rawURL string) []string {
	base := rawURL
	if idx := strings.IndexAny(base, "?#"); idx >= 0 {
		base = base[:idx]
	}

	lower := strings.ToLower(base)
	for _, ext := range candidateExtensions[1:] {
		if strings.HasSuffix(lower, ext) {
			return []string{rawURL}
		}
	}

	stem := base
	if ext := path.Ext(base); ext != "" && !strings.Contains(ext, "/") {
		stem = strings.TrimSuffix(base, ext)
	}

	candidates := make([]string, 0, len(candidateExtensions))
	for _, ext := range candidateExtensions {
		if ext == "" {
			candidates = append(candidates, rawURL)
			continue
		}
		candidates = append(candidates, stem+ext)
	}
	return candidates
}

func (f *Fetcher) fetchOnce(ctx context.Context, candidate string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "HotdogClassifier/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		resp.Body.Close()
		return nil, "", fmt.Errorf("not an image content-type: %s", contentType)
	}

	if resp.ContentLength > 0 && f.maxSize > 0 && resp.ContentLength > f.maxSize {
		resp.Body.Close()
		return nil, "", platformerrors.New(
			platformerrors.KindPayload,
			"fetch",
			fmt.Sprintf("remote image too large: %d bytes (max %d bytes)", resp.ContentLength, f.maxSize),
		)
	}

	return resp.Body, formatFromContentType(contentType), nil
}

func formatFromContentType(contentType string) string {
	lower := strings.ToLower(contentType)
	switch {
	case strings.Contains(lower, "jpeg"), strings.Contains(lower, "jpg"):
		return "jpeg"
	case strings.Contains(lower, "png"):
		return "png"
	case strings.Contains(lower, "gif"):
		return "gif"
	case strings.Contains(lower, "webp"):
		return "webp"
	default:
		return ""
	}
}
