// Package client sends completed surveys to the relay.
//
// A failed submission is never reported to the respondent: Submit hands the
// answers to a Fallback and only fails when the fallback does.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/survey-relay/form"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
)

// SubmitPath is where the relay listens for submissions.
const SubmitPath = "/api/survey-submit"

// FallbackTimeout bounds a fallback run. The fallback does not inherit the
// caller's deadline or cancellation: a send that failed because ctx ended
// must still be recorded.
const FallbackTimeout = 10 * time.Second

// TransportError is a network failure or a non-2xx answer from the relay.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("HTTP error: %d", e.Status)
	case e.Status != 0:
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Err)
	default:
		return "transport: " + e.Err.Error()
	}
}

// Permanent reports a 4xx answer: the relay refused the payload itself, so
// sending it again cannot succeed.
func (e *TransportError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FallbackError means the answers could not be saved anywhere.
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return "fallback: " + e.Err.Error()
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// Fallback durably records a submission the relay did not accept.
type Fallback interface {
	Record(ctx context.Context, answers model.Answers) (model.Result, error)
}

type Client struct {
	url      string
	http     *http.Client
	fallback Fallback
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// RelayURL joins the relay base URL and SubmitPath.
func RelayURL(base string) string {
	return strings.TrimRight(base, "/") + SubmitPath
}

// New returns a client posting to url. A nil fallback means Placeholder.
func New(url string, fallback Fallback, opts ...Option) *Client {
	if fallback == nil {
		fallback = Placeholder{}
	}
	c := &Client{
		url:      url,
		http:     http.DefaultClient,
		fallback: fallback,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts answers to the relay without falling back.
func (c *Client) Send(ctx context.Context, answers model.Answers) (model.Result, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return model.Result{}, errors.Wrap(err, "client.encode")
	}
	log.Debugf("client.payload: %s", payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return model.Result{}, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Result{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return model.Result{}, &TransportError{Status: resp.StatusCode}
	}

	result := model.Result{}
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return model.Result{}, &TransportError{Status: resp.StatusCode, Err: err}
	}
	return result, nil
}

// Submit sends answers to the relay, and to the fallback if that fails.
func (c *Client) Submit(ctx context.Context, answers model.Answers) (model.Result, error) {
	result, err := c.Send(ctx, answers)
	if err == nil {
		log.Info("client.submitted:", result.Message)
		return result, nil
	}
	log.Error("client.send:", err)

	fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FallbackTimeout)
	defer cancel()

	result, err = c.fallback.Record(fallbackCtx, answers)
	if err != nil {
		log.Error("client.fallback:", err)
		return model.Result{}, &FallbackError{err}
	}
	log.Info("client.fallback:", result.Message)
	return result, nil
}

// Watch waits for the survey to complete and submits its answers.
func (c *Client) Watch(ctx context.Context, completion *form.Completion) (model.Result, error) {
	select {
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	case <-completion.Done():
	}

	answers := completion.Answers()
	log.Debugf("client.completed: %d answers", len(answers))
	return c.Submit(ctx, answers)
}
