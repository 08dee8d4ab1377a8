package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"programhub/internal/authz"
	"programhub/internal/logging"
	"programhub/internal/model"
	"programhub/internal/repository"
)

const maxCommentLen = 5000

type CommentService interface {
	Add(ctx context.Context, actor model.Actor, programID, text string) (*model.CommentDetail, error)
	Update(ctx context.Context, actor model.Actor, commentID, text string) (*model.CommentDetail, error)
	Delete(ctx context.Context, actor model.Actor, commentID string) error
}

type commentService struct {
	programs repository.ProgramRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewCommentService(
	programs repository.ProgramRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
) CommentService {
	return &commentService{
		programs: programs,
		comments: comments,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *commentService) Add(ctx context.Context, actor model.Actor, programID, text string) (*model.CommentDetail, error) {
	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}
	p, err := findProgram(ctx, s.programs, programID)
	if err != nil {
		return nil, err
	}
	// Only published programs take comments, whoever is asking.
	if p.Status != model.StatusPublished {
		return nil, ErrNotFound
	}
	content, err := checkComment(text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c, err := s.comments.Create(ctx, &model.Comment{
		ID:        uuid.NewString(),
		ProgramID: p.ID,
		AuthorID:  actor.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("save comment: %w", err)
	}

	logging.FromContext(ctx).Info("comment added",
		"comment_id", c.ID,
		"program_id", p.ID,
		"author_id", actor.ID,
	)
	return s.detail(ctx, c), nil
}

func (s *commentService) Update(ctx context.Context, actor model.Actor, commentID, text string) (*model.CommentDetail, error) {
	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}
	c, err := findComment(ctx, s.comments, commentID)
	if err != nil {
		return nil, err
	}
	if !authz.CanMutate(actor, authz.ForComment(c)) {
		return nil, ErrUnauthorized
	}
	content, err := checkComment(text)
	if err != nil {
		return nil, err
	}

	updated, err := s.comments.UpdateContent(ctx, c.ID, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.detail(ctx, updated), nil
}

func (s *commentService) Delete(ctx context.Context, actor model.Actor, commentID string) error {
	if actor.Anonymous() {
		return ErrUnauthenticated
	}
	c, err := findComment(ctx, s.comments, commentID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(actor, authz.ForComment(c)) {
		return ErrUnauthorized
	}
	if err := s.comments.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}

	logging.FromContext(ctx).Info("comment deleted",
		"comment_id", c.ID,
		"actor_id", actor.ID,
	)
	return nil
}

func (s *commentService) detail(ctx context.Context, c *model.Comment) *model.CommentDetail {
	users := lookupUsers(ctx, s.users, []string{c.AuthorID})
	return &model.CommentDetail{Comment: *c, Author: users[c.AuthorID]}
}

func checkComment(text string) (string, error) {
	ve := &ValidationError{}
	content := strings.TrimSpace(text)
	checkText(ve, "content", content, maxCommentLen)
	if err := ve.orNil(); err != nil {
		return "", err
	}
	return content, nil
}
