// Package queue keeps submissions the relay did not accept in a local
// SQLite file, so they can be replayed later.
package queue

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mbolis/survey-relay/database"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
)

type Entry struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Answers   model.Answers
	Attempts  int
	LastError string
}

// Sender delivers answers to the relay. *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, answers model.Answers) (model.Result, error)
}

type Queue struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Queue, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps a database already migrated by database.Open.
func New(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Record stores answers for a later Replay.
func (q *Queue) Record(ctx context.Context, answers model.Answers) (model.Result, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Result{}, errors.Wrap(err, "queue.record.id")
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return model.Result{}, errors.Wrap(err, "queue.record.encode")
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO pending_submission (id, created_at, payload)
		VALUES (?, ?, ?)`,
		id.String(),
		q.now().UTC(),
		string(payload),
	)
	if err != nil {
		return model.Result{}, errors.Wrap(err, "queue.record.insert")
	}

	log.Infof("queue.record: submission %s queued", id)
	return model.Result{Success: true, Message: "queued for replay"}, nil
}

// Pending lists queued submissions still to be replayed, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Entry, error) {
	return q.list(ctx, "rejected_at IS NULL")
}

// Rejected lists submissions the relay refused outright. Replay skips them.
func (q *Queue) Rejected(ctx context.Context) ([]Entry, error) {
	return q.list(ctx, "rejected_at IS NOT NULL")
}

func (q *Queue) list(ctx context.Context, where string) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, created_at, payload, attempts, COALESCE(last_error, '')
		FROM pending_submission
		WHERE `+where+`
		ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "queue.list")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e := Entry{}
		var id, payload string
		err = rows.Scan(&id, &e.CreatedAt, &payload, &e.Attempts, &e.LastError)
		if err != nil {
			return nil, errors.Wrap(err, "queue.list.scan")
		}

		e.ID, err = uuid.FromString(id)
		if err != nil {
			return nil, errors.Wrapf(err, "queue.list.parse_id(%s)", id)
		}
		err = json.Unmarshal([]byte(payload), &e.Answers)
		if err != nil {
			return nil, errors.Wrapf(err, "queue.list.parse_payload(%s)", id)
		}

		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "queue.list.rows")
}

// permanent is implemented by errors that say a resend cannot succeed,
// such as *client.TransportError for a 4xx answer.
type permanent interface {
	Permanent() bool
}

func isPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}

// Replay sends every queued submission through sender. Delivered entries
// are removed; the others stay queued with their attempt count bumped.
// Entries the relay refuses outright are marked rejected and left out of
// later replays. The returned error collects one failure per entry left
// behind.
func (q *Queue) Replay(ctx context.Context, sender Sender) (delivered int, err error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}

	var errs *multierror.Error
	for _, e := range entries {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}

		_, sendErr := sender.Send(ctx, e.Answers)
		if sendErr != nil {
			var rejectedAt any
			if isPermanent(sendErr) {
				rejectedAt = q.now().UTC()
				log.Warnf("queue.replay: submission %s rejected: %s", e.ID, sendErr)
			} else {
				log.Warnf("queue.replay: submission %s: %s", e.ID, sendErr)
			}
			_, err = q.db.ExecContext(ctx, `
				UPDATE pending_submission
				SET attempts = attempts + 1,
					last_error = ?,
					rejected_at = ?
				WHERE id = ?`,
				sendErr.Error(),
				rejectedAt,
				e.ID.String(),
			)
			if err != nil {
				errs = multierror.Append(errs, errors.Wrapf(err, "queue.replay.update(%s)", e.ID))
			}
			errs = multierror.Append(errs, errors.Wrapf(sendErr, "queue.replay.send(%s)", e.ID))
			continue
		}

		_, err = q.db.ExecContext(ctx, `
			DELETE FROM pending_submission
			WHERE id = ?`,
			e.ID.String(),
		)
		if err != nil {
			// delivered but still queued: the next replay sends it again
			errs = multierror.Append(errs, errors.Wrapf(err, "queue.replay.delete(%s)", e.ID))
			continue
		}
		delivered++
	}

	log.Infof("queue.replay: %d of %d submissions delivered", delivered, len(entries))
	return delivered, errs.ErrorOrNil()
}
