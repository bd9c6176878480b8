package client

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
)

// Placeholder saves nothing. It reports success so callers behave as if the
// answers were kept; use it only where losing a submission is acceptable.
type Placeholder struct{}

func (Placeholder) Record(_ context.Context, answers model.Answers) (model.Result, error) {
	log.Warnf("client.fallback.placeholder: dropping %d answers", len(answers))
	return model.Result{Success: true, Message: "saved via fallback"}, nil
}

// Endpoint posts the answers to a secondary relay.
type Endpoint struct {
	URL  string
	HTTP *http.Client
}

func (e Endpoint) Record(ctx context.Context, answers model.Answers) (model.Result, error) {
	var opts []Option
	if e.HTTP != nil {
		opts = append(opts, WithHTTPClient(e.HTTP))
	}

	result, err := New(e.URL, nil, opts...).Send(ctx, answers)
	if err != nil {
		return model.Result{}, errors.Wrap(err, "client.fallback.endpoint")
	}
	return result, nil
}
