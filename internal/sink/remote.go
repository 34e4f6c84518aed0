package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hara602/fileSentry/internal/model"
)

// DeliveryError is a failed webservice call. StatusCode is zero when no
// response was received.
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webservice %s answered %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("webservice %s unreachable: %v", e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// RemoteHTTPSink reports each event with GET {address}:{port}/{kind}/{path}
type RemoteHTTPSink struct {
	base   string
	client *http.Client
}

// NewRemoteHTTPSink builds the sink. When client is nil, one bounded by
// cfg.Timeout (or DefaultTimeout) is created.
func NewRemoteHTTPSink(cfg model.SinkConfig, client *http.Client) *RemoteHTTPSink {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	address := strings.TrimRight(cfg.Address, "/")
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &RemoteHTTPSink{
		base:   address + ":" + strconv.Itoa(cfg.Port),
		client: client,
	}
}

// URL returns the request target for event
func (s *RemoteHTTPSink) URL(event model.Event) string {
	return s.base + "/" + event.Kind.String() + "/" + escapePath(event.Path)
}

func (s *RemoteHTTPSink) Notify(ctx context.Context, event model.Event) error {
	target := s.URL(event)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &DeliveryError{URL: target, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &DeliveryError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return &DeliveryError{URL: target, StatusCode: resp.StatusCode}
	}
	return nil
}

// escapePath percent-encodes each segment and keeps the separators, so an
// absolute path keeps its leading slash after the kind segment.
func escapePath(p string) string {
	segments := strings.Split(filepath.ToSlash(p), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
