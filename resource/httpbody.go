package resource

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"github.com/wippyai/hostres/errors"
)

// HTTPBody is a readable response body. Compressed bodies are decoded
// transparently according to their Content-Encoding.
type HTTPBody struct {
	mu      sync.Mutex
	r       io.Reader
	closers []func() error
}

// NewHTTPBody wraps resp.Body, decoding it per the Content-Encoding header.
func NewHTTPBody(resp *http.Response) (*HTTPBody, error) {
	return NewHTTPBodyReader(resp.Body, resp.Header.Get("Content-Encoding"))
}

// NewHTTPBodyReader wraps body with a decoder for encoding. Supported
// encodings are identity, gzip, deflate and zstd. body is closed on error.
func NewHTTPBodyReader(body io.ReadCloser, encoding string) (*HTTPBody, error) {
	b := &HTTPBody{r: body, closers: []func() error{body.Close}}

	switch enc := strings.ToLower(strings.TrimSpace(encoding)); enc {
	case "", "identity":
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, decodeFailed(body, enc, err)
		}
		b.r = zr
		b.closers = append(b.closers, zr.Close)
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, decodeFailed(body, enc, err)
		}
		b.r = zr
		b.closers = append(b.closers, zr.Close)
	case "zstd":
		d, err := zstd.NewReader(body)
		if err != nil {
			return nil, decodeFailed(body, enc, err)
		}
		b.r = d
		b.closers = append(b.closers, func() error {
			d.Close()
			return nil
		})
	default:
		_ = body.Close()
		return nil, errors.InvalidInput(errors.PhaseHTTP, fmt.Sprintf("unsupported content encoding %q", encoding))
	}
	return b, nil
}

func decodeFailed(body io.Closer, enc string, err error) error {
	return errors.Wrap(errors.PhaseHTTP, errors.KindIO, multierr.Append(err, body.Close()), enc+" decoder")
}

func (b *HTTPBody) Kind() Kind { return KindHTTPBody }

// Read reads decoded body bytes. Concurrent reads are serialized.
func (b *HTTPBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.Read(p)
}

func (b *HTTPBody) release() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i]())
	}
	return err
}
