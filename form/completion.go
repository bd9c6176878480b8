// Package form models the completion event of a rendered survey.
package form

import (
	"errors"
	"sync"

	"github.com/mbolis/survey-relay/model"
)

var ErrAlreadyCompleted = errors.New("survey already completed")

// Completion fires once per rendered survey session.
type Completion struct {
	once    sync.Once
	done    chan struct{}
	answers model.Answers
}

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Complete records the answers and wakes the subscribers. Only the first
// call counts.
func (c *Completion) Complete(answers model.Answers) error {
	err := ErrAlreadyCompleted
	c.once.Do(func() {
		c.answers = answers
		close(c.done)
		err = nil
	})
	return err
}

func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Answers is only meaningful once Done is closed.
func (c *Completion) Answers() model.Answers {
	<-c.done
	return c.answers
}
