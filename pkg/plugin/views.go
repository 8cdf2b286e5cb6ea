package plugin

import (
	"net/http"
	"net/url"

	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"go.uber.org/zap"
)

// Request is a plugin's view of one HTTP request message held by the host.
// The parsed URL is cached until Reset; header mutations are visible to
// the host when it assembles the outgoing message.
type Request struct {
	raw hostapi.RawMessage
	log *zap.Logger
	url *url.URL
}

func newRequest(raw hostapi.RawMessage, log *zap.Logger) *Request {
	if raw.Header == nil {
		raw.Header = http.Header{}
	}
	return &Request{raw: raw, log: log}
}

func (r *Request) Method() string      { return r.raw.Method }
func (r *Request) Header() http.Header { return r.raw.Header }

func (r *Request) Version() hostapi.HTTPVersion {
	return hostapi.DecodeVersion(r.raw.Major, r.raw.Minor, r.log)
}

// URL parses and caches the request target. A malformed target is logged
// and yields an empty URL, not an error.
func (r *Request) URL() *url.URL {
	if r.url != nil {
		return r.url
	}
	u, err := url.Parse(r.raw.URI)
	if err != nil {
		r.log.Error("unparseable request target", zap.String("uri", r.raw.URI), zap.Error(err))
		u = &url.URL{}
	}
	r.url = u
	return r.url
}

// Reset drops the cached parsed URL so the next URL call re-parses the
// canonical target. The post-remap refresh relies on this.
func (r *Request) Reset() { r.url = nil }

// setRaw swaps in a re-fetched raw message, keeping the view identity.
func (r *Request) setRaw(raw hostapi.RawMessage) {
	if raw.Header == nil {
		raw.Header = http.Header{}
	}
	r.raw = raw
	r.url = nil
}

// Response is a plugin's view of one HTTP response message.
type Response struct {
	raw hostapi.RawMessage
	log *zap.Logger
}

func newResponse(raw hostapi.RawMessage, log *zap.Logger) *Response {
	if raw.Header == nil {
		raw.Header = http.Header{}
	}
	return &Response{raw: raw, log: log}
}

func (r *Response) Status() int         { return r.raw.Status }
func (r *Response) Reason() string      { return r.raw.Reason }
func (r *Response) Header() http.Header { return r.raw.Header }
func (r *Response) Version() hostapi.HTTPVersion {
	return hostapi.DecodeVersion(r.raw.Major, r.raw.Minor, r.log)
}
