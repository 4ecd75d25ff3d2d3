// Package mock provides a scripted http.RoundTripper for exercising the gateway without a network.
package mock

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// Step is one scripted outcome. Either Err is returned from RoundTrip, or a response
// with Status, Header and Body.
type Step struct {
	Status int
	Header http.Header
	Body   string
	Err    error
}

// JSON scripts a response with a JSON content type.
func JSON(status int, body string) Step {
	return Step{Status: status, Header: http.Header{"Content-Type": {"application/json"}}, Body: body}
}

// Text scripts a plain-text response.
func Text(status int, body string) Step {
	return Step{Status: status, Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}}, Body: body}
}

// Timeout scripts a transport timeout.
func Timeout() Step {
	return Step{Err: timeoutError{}}
}

// Fail scripts a non-timeout transport error.
func Fail(err error) Step {
	return Step{Err: err}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "mock: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// RecordedRequest is what the transport saw for one call.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Transport replays Steps in order and repeats the last one once they run out.
// With RequestsUntilRateLimit > 0, every call past that count gets a 429 instead.
type Transport struct {
	Steps                  []Step
	RequestsUntilRateLimit int
	RetryAfterSecs         int

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewTransport returns a Transport scripted with steps.
func NewTransport(steps ...Step) *Transport {
	return &Transport{Steps: steps}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := RecordedRequest{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone()}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		rec.Body = body
	}

	t.mu.Lock()
	t.requests = append(t.requests, rec)
	n := len(t.requests)
	step := t.stepLocked(n)
	t.mu.Unlock()

	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}

	header := step.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	status := step.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(step.Body)),
		ContentLength: int64(len(step.Body)),
		Request:       req,
	}, nil
}

func (t *Transport) stepLocked(n int) Step {
	if t.RequestsUntilRateLimit > 0 && n > t.RequestsUntilRateLimit {
		s := JSON(http.StatusTooManyRequests, `{"error":"Rate limited"}`)
		if t.RetryAfterSecs > 0 {
			s.Header.Set("Retry-After", strconv.Itoa(t.RetryAfterSecs))
		}
		return s
	}
	if len(t.Steps) == 0 {
		return JSON(http.StatusOK, `{"success":true}`)
	}
	if n > len(t.Steps) {
		return t.Steps[len(t.Steps)-1]
	}
	return t.Steps[n-1]
}

// Client returns an *http.Client that sends everything through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Calls returns how many requests reached the transport.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Requests returns a copy of the recorded requests.
func (t *Transport) Requests() []RecordedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RecordedRequest(nil), t.requests...)
}

// Last returns the most recent request.
func (t *Transport) Last() (RecordedRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return RecordedRequest{}, false
	}
	return t.requests[len(t.requests)-1], true
}
