package audio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrEmptyLocation = errors.New("empty source location")
	ErrTooLarge      = errors.New("source exceeds size limit")
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultMaxBytes     = 32 << 20
)

// ProberConfig holds Prober configuration.
type ProberConfig struct {
	Timeout    time.Duration
	MaxBytes   int64 // Upper bound for Fetch
	HTTPClient *http.Client
}

// Prober checks and fetches audio locations. Locations are http(s) URLs,
// file:// URLs or plain paths.
type Prober struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewProber creates a prober.
func NewProber(config ProberConfig) *Prober {
	p := &Prober{
		client:   config.HTTPClient,
		timeout:  config.Timeout,
		maxBytes: config.MaxBytes,
	}
	if p.client == nil {
		p.client = http.DefaultClient
	}
	if p.timeout <= 0 {
		p.timeout = defaultProbeTimeout
	}
	if p.maxBytes <= 0 {
		p.maxBytes = defaultMaxBytes
	}
	return p
}

// Probe reports whether location can be opened.
func (p *Prober) Probe(ctx context.Context, location string) error {
	if location == "" {
		return ErrEmptyLocation
	}
	if !isRemote(location) {
		info, err := os.Stat(localPath(location))
		if err != nil {
			return errors.Wrapf(err, "failed to stat %s", location)
		}
		if info.IsDir() {
			return errors.Newf("%s is a directory", location)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	status, err := p.do(ctx, http.MethodHead, location, nil)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = p.do(ctx, http.MethodGet, location, map[string]string{"Range": "bytes=0-0"})
		if err != nil {
			return err
		}
	}
	if status >= http.StatusBadRequest {
		return errors.Newf("probe %s: unexpected status %d", location, status)
	}
	return nil
}

func (p *Prober) do(ctx context.Context, method, location string, header map[string]string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, location, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to reach %s", location)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Fetch reads the whole location into memory and returns it with its content type.
func (p *Prober) Fetch(ctx context.Context, location string) ([]byte, string, error) {
	if location == "" {
		return nil, "", ErrEmptyLocation
	}
	if !isRemote(location) {
		f, err := os.Open(localPath(location))
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to open %s", location)
		}
		defer f.Close()
		data, err := p.readLimited(f)
		return data, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to fetch %s", location)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", errors.Newf("fetch %s: unexpected status %d", location, resp.StatusCode)
	}
	if resp.ContentLength > p.maxBytes {
		return nil, "", errors.Wrapf(ErrTooLarge, "%s is %d bytes", location, resp.ContentLength)
	}

	data, err := p.readLimited(resp.Body)
	return data, resp.Header.Get("Content-Type"), err
}

func (p *Prober) readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read source")
	}
	if n > p.maxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "limit %d bytes", p.maxBytes)
	}
	return buf.Bytes(), nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func localPath(location string) string {
	if strings.HasPrefix(location, "file://") {
		if u, err := url.Parse(location); err == nil {
			return u.Path
		}
	}
	return location
}
