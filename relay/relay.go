// Package relay turns survey answers into spreadsheet rows.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/survey-relay/fields"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
	"github.com/mbolis/survey-relay/sheet"
)

// TimestampFormat matches JavaScript's Date.toISOString.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

var ErrEmptySubmission = errors.New("missing survey data")

// BackendError reports a failure while talking to the spreadsheet.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return "relay." + e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

type Relay struct {
	connector sheet.Connector
	order     fields.Order
	target    string
	now       func() time.Time
}

type Option func(*Relay)

// WithClock replaces time.Now for the timestamp cell.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func WithOrder(order fields.Order) Option {
	return func(r *Relay) { r.order = order }
}

// New builds a relay writing to target through connector. Relays sharing a
// target also share a write lock.
func New(connector sheet.Connector, target string, opts ...Option) *Relay {
	r := &Relay{
		connector: connector,
		order:     fields.Current,
		target:    target,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Order() fields.Order {
	return r.order
}

// Submit appends answers as a new row and returns its 1-based index.
func (r *Relay) Submit(ctx context.Context, answers model.Answers) (int, error) {
	if answers.Empty() {
		return 0, ErrEmptySubmission
	}

	s, err := r.connector.Connect(ctx)
	if err != nil {
		return 0, &BackendError{"connect", err}
	}
	defer s.Close()

	record, err := Project(r.order, answers, r.now())
	if err != nil {
		return 0, &BackendError{"project", err}
	}

	// Extent and WriteRow must not interleave with another submission to
	// the same target, or both would claim the same row.
	lock := lockFor(r.target)
	lock.Lock()
	defer lock.Unlock()

	extent, err := s.Extent(ctx)
	if err != nil {
		return 0, &BackendError{"extent", err}
	}
	row := NextRow(extent)

	err = s.WriteRow(ctx, row, record)
	if err != nil {
		return 0, &BackendError{"write", err}
	}

	log.WithFields(log.Fields{"target": r.target, "row": row}).Info("relay.saved")
	return row, nil
}

// NextRow is the first free row after extent populated rows.
func NextRow(extent int) int {
	if extent <= 0 {
		return 1
	}
	return extent + 1
}

// Project lays answers out in the column order, after a timestamp cell.
// Missing and null answers become empty cells; lists and records are
// stored as their JSON text.
func Project(order fields.Order, answers model.Answers, at time.Time) ([]any, error) {
	record := make([]any, 0, len(order.Labels)+1)
	record = append(record, at.UTC().Format(TimestampFormat))

	for _, label := range order.Labels {
		value, ok := answers[label]
		if !ok || value == nil {
			record = append(record, "")
			continue
		}

		switch value.(type) {
		case string, bool,
			float64, float32, int, int64, int32, uint, uint64, uint32,
			json.Number:
			record = append(record, value)
		default:
			text, err := json.Marshal(value)
			if err != nil {
				return nil, errors.Wrapf(err, "serialize %q", label)
			}
			record = append(record, string(text))
		}
	}
	return record, nil
}

var locks sync.Map

func lockFor(target string) *sync.Mutex {
	lock, _ := locks.LoadOrStore(target, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
