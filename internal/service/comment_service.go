package service

import (
	"context"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// CommentService stores comments on the tasks of ACCEPTED relations.
type CommentService struct {
	store repository.Store
	now   Clock
}

func NewCommentService(store repository.Store, clock Clock) *CommentService {
	if clock == nil {
		clock = SystemClock
	}
	return &CommentService{store: store, now: clock}
}

// Create adds a comment by actorID on taskID of relationID.
func (s *CommentService) Create(ctx context.Context, actorID, relationID, taskID uint64, comment string) (Result, error) {
	if !validText(comment) {
		return Result{}, invalid(msgInvalidComment)
	}
	c := model.TaskComment{
		UserID:     actorID,
		TaskID:     taskID,
		RelationID: relationID,
		Comment:    comment,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := openTask(ctx, tx, actorID, relationID, taskID); err != nil {
			return err
		}
		c.CreationDate = s.now()
		return tx.CreateComment(ctx, &c)
	})
	if err != nil {
		return Result{}, err
	}
	return createdResult(msgCommentWasCreated, c.ID), nil
}

// Get returns one comment. The caller must take part in the comment's
// relation.
func (s *CommentService) Get(ctx context.Context, actorID, commentID uint64) (*model.TaskComment, error) {
	var c *model.TaskComment
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		if c, err = tx.CommentByID(ctx, commentID); err != nil {
			return orNotFound(err, msgCommentNotFound)
		}
		rel, err := tx.RelationByID(ctx, c.RelationID)
		if err != nil {
			return orNotFound(err, msgCommentNotFound)
		}
		if !rel.IsParticipant(actorID) {
			return forbidden(msgNotInvolved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByTask returns the comments on one task, oldest first.
func (s *CommentService) ListByTask(ctx context.Context, actorID, relationID, taskID uint64) ([]model.TaskComment, error) {
	var out []model.TaskComment
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := openTask(ctx, tx, actorID, relationID, taskID); err != nil {
			return err
		}
		var err error
		out, err = tx.CommentsByTask(ctx, taskID, relationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns every comment written by actorID.
func (s *CommentService) ListByUser(ctx context.Context, actorID uint64) ([]model.TaskComment, error) {
	var out []model.TaskComment
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		out, err = tx.CommentsByUser(ctx, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ownComment loads commentID and checks it belongs to actorID and to the
// addressed task.
func ownComment(ctx context.Context, tx repository.Tx, actorID, relationID, taskID, commentID uint64, notYours string) (*model.TaskComment, error) {
	if _, err := openTask(ctx, tx, actorID, relationID, taskID); err != nil {
		return nil, err
	}
	c, err := tx.CommentByID(ctx, commentID)
	if err != nil {
		return nil, orNotFound(err, msgCommentNotFound)
	}
	if c.UserID != actorID {
		return nil, forbidden(notYours)
	}
	if c.TaskID != taskID || c.RelationID != relationID {
		return nil, notFound(msgCommentWrongTask)
	}
	return c, nil
}

// Modify replaces the text of a comment written by actorID.
func (s *CommentService) Modify(ctx context.Context, actorID, relationID, taskID, commentID uint64, comment string) (Result, error) {
	if !validText(comment) {
		return Result{}, invalid(msgInvalidComment)
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		c, err := ownComment(ctx, tx, actorID, relationID, taskID, commentID, msgCommentNotYours)
		if err != nil {
			return err
		}
		now := s.now()
		c.Comment = comment
		c.ModificationDate = &now
		return tx.UpdateComment(ctx, c)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgCommentWasUpdated), nil
}

// Delete removes a comment written by actorID.
func (s *CommentService) Delete(ctx context.Context, actorID, relationID, taskID, commentID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		c, err := ownComment(ctx, tx, actorID, relationID, taskID, commentID, msgCommentNotYoursDelete)
		if err != nil {
			return err
		}
		return tx.DeleteComment(ctx, c.ID)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgCommentWasDeleted), nil
}
