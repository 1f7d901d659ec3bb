package loader

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// MaxFileSize limits loaded documents to 10MB
const MaxFileSize = 10 * 1024 * 1024

var (
	// ErrNotText is returned for content that is not text.
	ErrNotText = errors.New("not a text file")
	// ErrTooLarge is returned for content over MaxFileSize.
	ErrTooLarge = errors.New("file too large")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config defines loader configuration
type Config struct {
	Timeout   time.Duration // Per-request fetch timeout
	Retries   int           // Fetch retries after the first attempt
	RetryWait time.Duration // Initial wait between retries
	UserAgent string
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		Retries:   3,
		RetryWait: time.Second,
		UserAgent: "MarkRead/1.0",
	}
}

// Loader reads documents from disk and the network.
type Loader struct {
	client *resty.Client
	logger *zap.Logger
}

// New creates a loader
func New(config Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.Retries
	retryClient.RetryWaitMin = config.RetryWait
	retryClient.RetryWaitMax = 10 * config.RetryWait
	retryClient.Logger = nil // Disable logging

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")

	return &Loader{
		client: client,
		logger: logger.Named("loader"),
	}
}

// LoadText reads the text file at path. Failures are logged and reported as
// false, meaning no file was selected.
func (l *Loader) LoadText(path string) (string, bool) {
	text, err := l.ReadText(path)
	if err != nil {
		l.logger.Warn("failed to load file", zap.String("path", path), zap.Error(err))
		return "", false
	}
	return text, true
}

// ReadText reads the text file at path and returns its content as UTF-8.
func (l *Loader) ReadText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// DecodeText checks that data is text and converts it to UTF-8.
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if len(data) > MaxFileSize {
		return "", ErrTooLarge
	}
	if !IsText(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, mimetype.Detect(data).String())
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	name := DetectCharset(data)
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return "", fmt.Errorf("unsupported charset %q", name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return string(out), nil
}

// IsText reports whether data is detected as text/plain or a subtype of it.
func IsText(data []byte) bool {
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

// DetectCharset detects and returns the charset of data
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// BaseName returns the last element of a path or http(s) URL.
func BaseName(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if base := pathpkg.Base(u.Path); base != "/" && base != "." {
			return base
		}
		return u.Host
	}
	return filepath.Base(path)
}
