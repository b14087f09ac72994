// Package publish delivers estimator output to external consumers.
package publish

import (
	"errors"
	"time"

	"github.com/ayusman/mindreader/internal/affect"
)

// Update is one tick of estimator output.
type Update struct {
	State    affect.State           `json:"state"`
	Previous affect.State           `json:"previous,omitempty"`
	Detail   string                 `json:"detail"`
	Progress float64                `json:"progress"`
	Levels   affect.IntegratorState `json:"levels"`
	Time     time.Time              `json:"time"`
}

// Changed reports whether the state differs from the previous tick.
func (u Update) Changed() bool {
	return u.State != u.Previous
}

// Publisher sends updates somewhere outside the process.
type Publisher interface {
	Publish(u Update) error
	Close() error
}

// Multi fans an update out to several publishers.
type Multi []Publisher

// Publish sends u to every publisher and joins their errors.
func (m Multi) Publish(u Update) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
