package apigateway

import (
	"net/http"
	"strings"
	"time"
)

// Supported request methods.
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// Request is one logical call against a registered provider.
type Request struct {
	Method   string
	Endpoint string // relative to the provider's BaseURL
	// Params become the query string for GET, HEAD and DELETE and the JSON body otherwise,
	// unless Body is set.
	Params map[string]any
	// Body overrides Params as the request body. []byte and string are sent as-is,
	// anything else is JSON encoded.
	Body    any
	Query   map[string]string
	Headers map[string]string
	// NoCache skips both the cache lookup and the cache store for this call.
	NoCache bool
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r *Request) paramsInQuery() bool {
	switch r.method() {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// Response is the parsed outcome of a successful call.
type Response struct {
	StatusCode int
	// Headers are lower-cased, first value only.
	Headers map[string]string
	// Data is the decoded JSON document when the response declared a JSON content type
	// and decoded cleanly, otherwise the body as a string.
	Data      any
	Raw       []byte
	FromCache bool
	FetchedAt time.Time
	Attempts  int
}

// JSON returns Data as a JSON object, if it is one.
func (r *Response) JSON() (map[string]any, bool) {
	m, ok := r.Data.(map[string]any)
	return m, ok
}

// Text returns Data as a string, if the body was not JSON.
func (r *Response) Text() (string, bool) {
	s, ok := r.Data.(string)
	return s, ok
}

// clone copies r deeply, so the copy shares no maps, slices or bytes with r.
func (r *Response) clone() *Response {
	out := *r
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Raw != nil {
		out.Raw = append([]byte(nil), r.Raw...)
	}
	out.Data = cloneData(r.Data)
	return &out
}

// cloneData copies decoded JSON values. Scalars are immutable and returned as is.
func cloneData(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = cloneData(e)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = cloneData(e)
		}
		return out
	default:
		return v
	}
}

func (r *Response) size() int {
	n := len(r.Raw)
	for k, v := range r.Headers {
		n += len(k) + len(v)
	}
	return n
}
