package httpclient

import "net/http"

// Request is one outbound call. URL must be absolute.
type Request struct {
	Method   string
	URL      string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Response is a reply whose body has been read in full.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode/100 == 2
}

// ContentType returns the reply's Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}
