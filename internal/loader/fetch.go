package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrUnsupportedURL is returned for URLs that are not http or https.
var ErrUnsupportedURL = errors.New("unsupported url")

// Fetch downloads the text document at rawURL.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	resp, err := l.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch failed: %s", resp.Status())
	}

	text, err := DecodeText(resp.Body())
	if err != nil {
		return "", fmt.Errorf("%s: %w", u.Redacted(), err)
	}
	return text, nil
}
