// Package service implements the mentorship core: the relation state
// machine, the relation registry queries, task lists, task comments and
// the scheduled maintenance jobs. Every operation takes the acting user id
// and runs as a single unit of work against repository.Store.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// Clock returns the current time. Services always work in UTC.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time { return time.Now().UTC() }

// Result is the success payload of a mutating operation.
// ID is set when the operation created an entity.
type Result struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	ID      uint64 `json:"id,omitempty"`
}

func createdResult(msg string, id uint64) Result {
	return Result{Status: http.StatusCreated, Message: msg, ID: id}
}

func okResult(msg string) Result { return Result{Status: http.StatusOK, Message: msg} }

// loadActor fetches the acting user and applies the verified-email gate.
// Every relation, task and comment operation calls it first.
func loadActor(ctx context.Context, tx repository.Tx, userID uint64) (*model.User, error) {
	u, err := tx.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		return nil, err
	}
	if err := requireVerified(u); err != nil {
		return nil, err
	}
	return u, nil
}

// requireVerified rejects users that have not confirmed their email.
func requireVerified(u *model.User) error {
	if !u.IsEmailVerified {
		return forbidden(msgEmailNotVerified)
	}
	return nil
}

func orNotFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(msg)
	}
	return err
}
