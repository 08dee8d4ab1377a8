package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"programhub/internal/artifact"
	"programhub/internal/authz"
	"programhub/internal/counter"
	"programhub/internal/logging"
	"programhub/internal/model"
	"programhub/internal/repository"
)

const (
	maxTitleLen    = 255
	maxLanguageLen = 50
	maxVersionLen  = 20

	defaultPerPage = 10
	maxPerPage     = 100
)

type CreateProgramInput struct {
	Title       string
	Description string
	Language    string
	Version     string
	Status      string
	File        *artifact.Upload
	Thumbnail   *artifact.Upload
	CategoryIDs []int64
}

// UpdateProgramInput carries a partial update. Nil fields are left untouched;
// a nil CategoryIDs keeps the current links while an empty one clears them.
type UpdateProgramInput struct {
	Title       *string
	Description *string
	Language    *string
	Version     *string
	Status      *string
	File        *artifact.Upload
	Thumbnail   *artifact.Upload
	CategoryIDs []int64
}

type ListProgramsInput struct {
	Category  string
	Search    string
	Sort      string
	Direction string
	Page      int
	PerPage   int
}

type ProgramPage struct {
	Items    []model.ProgramDetail `json:"data"`
	Total    int                   `json:"total"`
	Page     int                   `json:"current_page"`
	PerPage  int                   `json:"per_page"`
	LastPage int                   `json:"last_page"`
}

// Download is an open artifact stream. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

type ProgramService interface {
	Create(ctx context.Context, actor model.Actor, in CreateProgramInput) (*model.ProgramDetail, error)
	Get(ctx context.Context, actor model.Actor, id string) (*model.ProgramDetail, error)
	List(ctx context.Context, in ListProgramsInput) (*ProgramPage, error)
	Update(ctx context.Context, actor model.Actor, id string, in UpdateProgramInput) (*model.ProgramDetail, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	Download(ctx context.Context, actor model.Actor, id string) (*Download, error)
	Thumbnail(ctx context.Context, actor model.Actor, id string) (*Download, error)
}

type programService struct {
	store      *artifact.Store
	programs   repository.ProgramRepository
	categories repository.CategoryRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	counters   *counter.Tracker
	now        func() time.Time
}

func NewProgramService(
	store *artifact.Store,
	programs repository.ProgramRepository,
	categories repository.CategoryRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	counters *counter.Tracker,
) ProgramService {
	return &programService{
		store:      store,
		programs:   programs,
		categories: categories,
		comments:   comments,
		users:      users,
		counters:   counters,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *programService) Create(ctx context.Context, actor model.Actor, in CreateProgramInput) (_ *model.ProgramDetail, err error) {
	ctx, span := tracer.Start(ctx, "ProgramService.Create")
	defer func() { finishSpan(span, err) }()

	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}

	ve := &ValidationError{}
	checkText(ve, "title", in.Title, maxTitleLen)
	checkText(ve, "description", in.Description, 0)
	checkText(ve, "programming_language", in.Language, maxLanguageLen)
	checkText(ve, "version", in.Version, maxVersionLen)
	status := model.StatusPublished
	if in.Status != "" {
		status = checkStatus(ve, in.Status)
	}
	checkUpload(ve, "file", in.File, artifact.KindProgram)
	if in.Thumbnail != nil {
		checkUpload(ve, "thumbnail", in.Thumbnail, artifact.KindThumbnail)
	}
	ids := uniqueIDs(in.CategoryIDs)
	cats, err := s.resolveCategories(ctx, ids, ve)
	if err != nil {
		return nil, err
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	// Objects go first so a committed record never points at missing bytes.
	sw := s.store.Begin()
	fileRef, err := sw.Put(ctx, *in.File, artifact.KindProgram)
	if err != nil {
		sw.Rollback(ctx)
		return nil, storageFailure("file", "store artifact", err)
	}
	var thumbRef *string
	if in.Thumbnail != nil {
		ref, err := sw.Put(ctx, *in.Thumbnail, artifact.KindThumbnail)
		if err != nil {
			sw.Rollback(ctx)
			return nil, storageFailure("thumbnail", "store thumbnail", err)
		}
		thumbRef = &ref
	}

	now := s.now()
	p := &model.Program{
		ID:            uuid.NewString(),
		OwnerID:       actor.ID,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		FilePath:      fileRef,
		ThumbnailPath: thumbRef,
		Language:      strings.TrimSpace(in.Language),
		Version:       strings.TrimSpace(in.Version),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	stored, err := s.programs.Create(ctx, p, ids)
	if err != nil {
		sw.Rollback(ctx)
		return nil, fmt.Errorf("save program: %w", err)
	}
	sw.Commit(ctx)

	logging.FromContext(ctx).Info("program created",
		"program_id", stored.ID,
		"owner_id", actor.ID,
		"status", string(stored.Status),
	)

	owner := lookupUsers(ctx, s.users, []string{stored.OwnerID})
	return &model.ProgramDetail{
		Program:    *stored,
		Owner:      owner[stored.OwnerID],
		Categories: cats,
	}, nil
}

func (s *programService) Get(ctx context.Context, actor model.Actor, id string) (*model.ProgramDetail, error) {
	ctx, span := tracer.Start(ctx, "ProgramService.Get")
	defer span.End()

	p, err := findProgram(ctx, s.programs, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, p) {
		return nil, ErrNotFound
	}
	if n, ok := s.counters.IncrementView(ctx, p.ID); ok {
		p.ViewCount = n
	}

	details, err := s.hydrate(ctx, []model.Program{*p})
	if err != nil {
		return nil, err
	}
	d := &details[0]

	comments, err := s.comments.ListByProgram(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	authorIDs := make([]string, len(comments))
	for i, c := range comments {
		authorIDs[i] = c.AuthorID
	}
	authors := lookupUsers(ctx, s.users, authorIDs)
	thread := make([]model.CommentDetail, len(comments))
	for i, c := range comments {
		thread[i] = model.CommentDetail{Comment: c, Author: authors[c.AuthorID]}
	}
	d.Comments = &thread
	return d, nil
}

func (s *programService) List(ctx context.Context, in ListProgramsInput) (*ProgramPage, error) {
	ctx, span := tracer.Start(ctx, "ProgramService.List")
	defer span.End()

	page := in.Page
	if page < 1 {
		page = 1
	}
	perPage := in.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q := repository.ProgramQuery{
		Status:       model.StatusPublished,
		CategorySlug: strings.TrimSpace(in.Category),
		Search:       strings.TrimSpace(in.Search),
		Sort:         repository.SortField(strings.ToLower(in.Sort)),
		Desc:         !strings.EqualFold(in.Direction, "asc"),
		Page:         repository.PageQuery{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if !q.Sort.Valid() {
		q.Sort = repository.SortCreatedAt
		q.Desc = true
	}

	res, err := s.programs.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	items, err := s.hydrate(ctx, res.Items)
	if err != nil {
		return nil, err
	}

	lastPage := (res.Total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	return &ProgramPage{
		Items:    items,
		Total:    res.Total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage,
	}, nil
}

func (s *programService) Update(ctx context.Context, actor model.Actor, id string, in UpdateProgramInput) (_ *model.ProgramDetail, err error) {
	ctx, span := tracer.Start(ctx, "ProgramService.Update")
	defer func() { finishSpan(span, err) }()

	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}
	p, err := findProgram(ctx, s.programs, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanMutate(actor, authz.ForProgram(p)) {
		return nil, ErrUnauthorized
	}

	ve := &ValidationError{}
	if in.Title != nil {
		checkText(ve, "title", *in.Title, maxTitleLen)
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		checkText(ve, "description", *in.Description, 0)
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Language != nil {
		checkText(ve, "programming_language", *in.Language, maxLanguageLen)
		p.Language = strings.TrimSpace(*in.Language)
	}
	if in.Version != nil {
		checkText(ve, "version", *in.Version, maxVersionLen)
		p.Version = strings.TrimSpace(*in.Version)
	}
	if in.Status != nil {
		p.Status = checkStatus(ve, *in.Status)
	}
	if in.File != nil {
		checkUpload(ve, "file", in.File, artifact.KindProgram)
	}
	if in.Thumbnail != nil {
		checkUpload(ve, "thumbnail", in.Thumbnail, artifact.KindThumbnail)
	}
	ids := uniqueIDs(in.CategoryIDs)
	if err := s.checkCategories(ctx, ids, ve); err != nil {
		return nil, err
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	sw := s.store.Begin()
	if in.File != nil {
		ref, err := sw.Replace(ctx, p.FilePath, *in.File, artifact.KindProgram)
		if err != nil {
			sw.Rollback(ctx)
			return nil, storageFailure("file", "replace artifact", err)
		}
		p.FilePath = ref
	}
	if in.Thumbnail != nil {
		old := ""
		if p.ThumbnailPath != nil {
			old = *p.ThumbnailPath
		}
		ref, err := sw.Replace(ctx, old, *in.Thumbnail, artifact.KindThumbnail)
		if err != nil {
			sw.Rollback(ctx)
			return nil, storageFailure("thumbnail", "replace thumbnail", err)
		}
		p.ThumbnailPath = &ref
	}

	p.UpdatedAt = s.now()
	stored, err := s.programs.Update(ctx, p, ids)
	if err != nil {
		sw.Rollback(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update program: %w", err)
	}
	sw.Commit(ctx)

	logging.FromContext(ctx).Info("program updated",
		"program_id", stored.ID,
		"actor_id", actor.ID,
	)

	details, err := s.hydrate(ctx, []model.Program{*stored})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *programService) Delete(ctx context.Context, actor model.Actor, id string) (err error) {
	ctx, span := tracer.Start(ctx, "ProgramService.Delete")
	defer func() { finishSpan(span, err) }()

	if actor.Anonymous() {
		return ErrUnauthenticated
	}
	p, err := findProgram(ctx, s.programs, id)
	if err != nil {
		return err
	}
	if !authz.CanDelete(actor, authz.ForProgram(p)) {
		return ErrUnauthorized
	}

	if err := s.programs.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete program: %w", err)
	}

	sw := s.store.Begin()
	sw.Retire(p.FilePath)
	if p.ThumbnailPath != nil {
		sw.Retire(*p.ThumbnailPath)
	}
	leftover := sw.Commit(ctx)

	logging.FromContext(ctx).Info("program deleted",
		"program_id", p.ID,
		"actor_id", actor.ID,
		"orphaned_artifacts", len(leftover),
	)
	return nil
}

func (s *programService) Download(ctx context.Context, actor model.Actor, id string) (_ *Download, err error) {
	ctx, span := tracer.Start(ctx, "ProgramService.Download")
	defer func() { finishSpan(span, err) }()

	p, err := findProgram(ctx, s.programs, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, p) {
		return nil, ErrNotFound
	}

	dl, err := s.open(ctx, p.FilePath)
	if err != nil {
		return nil, err
	}
	s.counters.IncrementDownload(ctx, p.ID)
	return dl, nil
}

func (s *programService) Thumbnail(ctx context.Context, actor model.Actor, id string) (*Download, error) {
	p, err := findProgram(ctx, s.programs, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, p) || p.ThumbnailPath == nil {
		return nil, ErrNotFound
	}
	return s.open(ctx, *p.ThumbnailPath)
}

func (s *programService) open(ctx context.Context, ref string) (*Download, error) {
	rc, info, err := s.store.Open(ctx, ref)
	if err != nil {
		return nil, &StorageError{Op: "open artifact", Err: err}
	}
	ct := info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Download{
		Body:        rc,
		Filename:    artifact.Filename(ref),
		ContentType: ct,
		Size:        info.Size,
	}, nil
}

// hydrate attaches owners and categories. Comments are left to the caller.
func (s *programService) hydrate(ctx context.Context, programs []model.Program) ([]model.ProgramDetail, error) {
	out := make([]model.ProgramDetail, len(programs))
	if len(programs) == 0 {
		return out, nil
	}

	ids := make([]string, len(programs))
	owners := make([]string, len(programs))
	for i, p := range programs {
		ids[i] = p.ID
		owners[i] = p.OwnerID
	}
	cats, err := s.categories.ForPrograms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	users := lookupUsers(ctx, s.users, owners)

	for i, p := range programs {
		c := cats[p.ID]
		if c == nil {
			c = []model.Category{}
		}
		out[i] = model.ProgramDetail{
			Program:    p,
			Owner:      users[p.OwnerID],
			Categories: c,
		}
	}
	return out, nil
}

func (s *programService) resolveCategories(ctx context.Context, ids []int64, ve *ValidationError) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}
	cats, err := s.categories.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}
	if len(cats) == len(ids) {
		return cats, nil
	}
	known := make(map[int64]struct{}, len(cats))
	for _, c := range cats {
		known[c.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			ve.add("categories", fmt.Sprintf("unknown category %d", id))
		}
	}
	return cats, nil
}

// checkCategories validates ids without loading them.
func (s *programService) checkCategories(ctx context.Context, ids []int64, ve *ValidationError) error {
	if len(ids) != 1 {
		_, err := s.resolveCategories(ctx, ids, ve)
		return err
	}
	ok, err := s.categories.Exists(ctx, ids[0])
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		ve.add("categories", fmt.Sprintf("unknown category %d", ids[0]))
	}
	return nil
}

func checkText(ve *ValidationError, field, value string, max int) {
	v := strings.TrimSpace(value)
	if v == "" {
		ve.add(field, "is required")
		return
	}
	if max > 0 && utf8.RuneCountInString(v) > max {
		ve.add(field, fmt.Sprintf("must not exceed %d characters", max))
	}
}

func checkStatus(ve *ValidationError, value string) model.ProgramStatus {
	st := model.ProgramStatus(strings.ToLower(strings.TrimSpace(value)))
	if !st.Valid() {
		ve.add("status", "must be one of published, draft, archived")
	}
	return st
}
