package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"programhub/internal/logging"
	"programhub/internal/model"
	"programhub/internal/repository"
)

var tracer = otel.Tracer("programhub/internal/service")

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func findProgram(ctx context.Context, repo repository.ProgramRepository, id string) (*model.Program, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	p, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return p, nil
}

func findComment(ctx context.Context, repo repository.CommentRepository, id string) (*model.Comment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

// lookupUsers resolves display names. On lookup failure every summary carries
// only its id.
func lookupUsers(ctx context.Context, users repository.UserRepository, ids []string) map[string]model.UserSummary {
	found, err := users.Summaries(ctx, dedupe(ids))
	if err != nil {
		logging.FromContext(ctx).Warn("user lookup failed", "error", err)
		found = nil
	}
	out := make(map[string]model.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := found[id]; ok {
			out[id] = u
		} else {
			out[id] = model.UserSummary{ID: id}
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// uniqueIDs collapses duplicates while keeping nil distinct from empty.
func uniqueIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
