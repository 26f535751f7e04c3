package httpclient

import "io"

// Request describes an outbound call. Body may be an io.Reader, []byte,
// string, *MultipartBody or any JSON-encodable value.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StreamResponse leaves the body unread. The caller closes Body.
type StreamResponse struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}
