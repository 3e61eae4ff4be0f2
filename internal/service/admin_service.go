package service

import (
	"context"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// AdminService toggles the admin flag. Only verified admins may use it.
type AdminService struct {
	store repository.Store
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

func requireAdmin(ctx context.Context, tx repository.Tx, actorID uint64) error {
	actor, err := loadActor(ctx, tx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		return forbidden(msgNotAdmin)
	}
	return nil
}

// Assign grants admin status to targetID.
func (s *AdminService) Assign(ctx context.Context, actorID, targetID uint64) (Result, error) {
	if actorID == targetID {
		return Result{}, forbidden(msgCannotAssignSelf)
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		target, err := tx.UserByID(ctx, targetID)
		if err != nil {
			return orNotFound(err, msgUserNotFound)
		}
		if target.IsAdmin {
			return conflict(msgAlreadyAdmin)
		}
		target.IsAdmin = true
		return tx.UpdateUser(ctx, target)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgUserIsNowAdmin), nil
}

// Revoke removes admin status from targetID. The last admin cannot
// revoke themselves.
func (s *AdminService) Revoke(ctx context.Context, actorID, targetID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		if actorID == targetID {
			n, err := tx.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if n <= 1 {
				return forbidden(msgCannotRevokeLastAdmin)
			}
		}
		target, err := tx.UserByID(ctx, targetID)
		if err != nil {
			return orNotFound(err, msgUserNotFound)
		}
		if !target.IsAdmin {
			return conflict(msgNotAnAdmin)
		}
		target.IsAdmin = false
		return tx.UpdateUser(ctx, target)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgUserAdminStatusRevoked), nil
}

// List returns the other admins, ordered by id.
func (s *AdminService) List(ctx context.Context, actorID uint64) ([]model.User, error) {
	out := []model.User{}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		admins, err := tx.ListAdmins(ctx)
		if err != nil {
			return err
		}
		for _, a := range admins {
			if a.ID != actorID {
				out = append(out, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
