package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
	"github.com/iliyamo/mentorship-system/internal/utils"
)

// Session is the token pair handed out on login and refresh.
type Session struct {
	UserID  uint64
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Login checks credentials and opens a session. identity is either the
// username or the email address. Unverified users cannot log in.
func (s *UserService) Login(ctx context.Context, identity, password string) (Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return Session{}, invalid(msgInvalidCredentials)
	}
	var sess Session
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var (
			u   *model.User
			err error
		)
		if strings.Contains(identity, "@") {
			u, err = tx.UserByEmail(ctx, identity)
		} else {
			u, err = tx.UserByUsername(ctx, identity)
		}
		if err != nil {
			return orUnauthorized(err, msgInvalidCredentials)
		}
		if !utils.VerifyPassword(u.PasswordHash, password) {
			return unauthorized(msgInvalidCredentials)
		}
		if err := requireVerified(u); err != nil {
			return err
		}
		sess, err = s.issue(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (s *UserService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, unauthorized(msgInvalidRefresh)
	}
	hash := utils.HashRefreshRaw(raw)
	var sess Session
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		userID, err := tx.RefreshOwner(ctx, hash, now)
		if err != nil {
			return orUnauthorized(err, msgInvalidRefresh)
		}
		if err := tx.RevokeRefresh(ctx, hash, now); err != nil {
			return err
		}
		u, err := tx.UserByID(ctx, userID)
		if err != nil {
			return orUnauthorized(err, msgInvalidRefresh)
		}
		sess, err = s.issue(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout revokes every refresh token of userID. Access tokens stay valid
// until they expire.
func (s *UserService) Logout(ctx context.Context, userID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.RevokeAllRefresh(ctx, userID, s.now())
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgLoggedOut), nil
}

func (s *UserService) issue(ctx context.Context, tx repository.Tx, userID uint64) (Session, error) {
	now := s.now()
	access, err := utils.NewAccessToken(s.cfg.TokenSecret, userID, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTokenTTL, now)
	if err != nil {
		return Session{}, err
	}
	if err := tx.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{UserID: userID, Access: access, Refresh: refresh}, nil
}

func orUnauthorized(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return unauthorized(msg)
	}
	return err
}
