package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/repository"
	"github.com/iliyamo/mentorship-system/internal/utils"
)

// minPasswordLength is the shortest password accepted at registration.
const minPasswordLength = 8

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name              string
	Username          string
	Email             string
	Password          string
	NeedMentoring     bool
	AvailableToMentor bool
}

// UserConfig holds the settings the user service needs.
type UserConfig struct {
	TokenSecret     string
	EmailTokenTTL   time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// UserService registers users and confirms their email addresses.
type UserService struct {
	store    repository.Store
	notifier Notifier
	now      Clock
	cfg      UserConfig
}

func NewUserService(store repository.Store, notifier Notifier, clock Clock, cfg UserConfig) *UserService {
	if clock == nil {
		clock = SystemClock
	}
	return &UserService{store: store, notifier: notifier, now: clock, cfg: cfg}
}

func (in RegisterInput) valid() bool {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Username) == "" {
		return false
	}
	if utf8.RuneCountInString(in.Name) > 30 || utf8.RuneCountInString(in.Username) > 30 {
		return false
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return false
	}
	return utf8.RuneCountInString(in.Password) >= minPasswordLength
}

// Register creates an unverified user and sends a confirmation token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (Result, error) {
	if !in.valid() {
		return Result{}, invalid(msgInvalidRegistration)
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Result{}, err
	}
	u := model.User{
		Name:              strings.TrimSpace(in.Name),
		Username:          strings.TrimSpace(in.Username),
		Email:             in.Email,
		PasswordHash:      hash,
		NeedMentoring:     in.NeedMentoring,
		AvailableToMentor: in.AvailableToMentor,
		RegistrationDate:  s.now(),
	}
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		switch err := tx.CreateUser(ctx, &u); {
		case errors.Is(err, repository.ErrUsernameExists):
			return exists(msgUsernameTaken)
		case errors.Is(err, repository.ErrEmailExists):
			return exists(msgEmailTaken)
		default:
			return err
		}
	})
	if err != nil {
		return Result{}, err
	}

	token, err := utils.NewEmailToken(s.cfg.TokenSecret, u.Email, s.cfg.EmailTokenTTL, s.now())
	if err != nil {
		return Result{}, err
	}
	notify(ctx, s.notifier, queue.NotificationEvent{
		Kind:           queue.KindEmailVerification,
		RecipientID:    u.ID,
		RecipientName:  u.Name,
		RecipientEmail: u.Email,
		Token:          token,
	})
	return createdResult(msgUserWasCreated, u.ID), nil
}

// ConfirmEmail marks the owner of token as verified. Confirming twice is
// not an error.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) (Result, error) {
	email, err := utils.ParseEmailToken(s.cfg.TokenSecret, token, s.now())
	if err != nil {
		return Result{}, invalid(msgInvalidToken)
	}
	res := okResult(msgEmailConfirmed)
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByEmail(ctx, email)
		if err != nil {
			return orNotFound(err, msgUserNotFound)
		}
		if u.IsEmailVerified {
			res = okResult(msgEmailAlreadyConfirmed)
			return nil
		}
		u.IsEmailVerified = true
		return tx.UpdateUser(ctx, u)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Get returns the profile of userID. Unverified users may read their own
// profile.
func (s *UserService) Get(ctx context.Context, userID uint64) (*model.User, error) {
	var u *model.User
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.UserByID(ctx, userID)
		return orNotFound(err, msgUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
