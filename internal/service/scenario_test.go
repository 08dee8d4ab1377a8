package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"programhub/internal/artifact"
	"programhub/internal/counter"
	"programhub/internal/model"
	"programhub/internal/repository/memory"
	"programhub/internal/storage"
)

var (
	owner    = model.Actor{ID: "u-owner"}
	stranger = model.Actor{ID: "u-stranger"}
	admin    = model.Actor{ID: "u-admin", Roles: []string{model.RoleAdmin}}
)

type fixture struct {
	db       *memory.DB
	store    *artifact.Store
	programs *programService
	comments CommentService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	db.PutCategory(model.Category{ID: 1, Name: "Algorithms", Slug: "algorithms"})
	db.PutCategory(model.Category{ID: 2, Name: "Games", Slug: "games"})
	db.PutCategory(model.Category{ID: 3, Name: "Tools", Slug: "tools"})
	db.PutUser(model.UserSummary{ID: owner.ID, Name: "Olive"})

	tracker, err := counter.NewTracker(db.Programs(), nil)
	require.NoError(t, err)

	store := artifact.NewStore(storage.NewMemory())
	f := &fixture{
		db:    db,
		store: store,
		clock: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.programs = NewProgramService(store, db.Programs(), db.Categories(), db.Comments(), db.Users(), tracker).(*programService)
	f.programs.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.comments = NewCommentService(db.Programs(), db.Comments(), db.Users())
	return f
}

func upload(name string, data []byte) *artifact.Upload {
	return &artifact.Upload{Filename: name, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func (f *fixture) create(t *testing.T, title, desc string, status model.ProgramStatus, cats ...int64) *model.ProgramDetail {
	t.Helper()
	d, err := f.programs.Create(context.Background(), owner, CreateProgramInput{
		Title:       title,
		Description: desc,
		Language:    "Go",
		Version:     "1.0.0",
		Status:      string(status),
		File:        upload(title+".go", []byte("package main // "+title)),
		CategoryIDs: cats,
	})
	require.NoError(t, err)
	return d
}

func slugs(cats []model.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Slug
	}
	return out
}

func titles(items []model.ProgramDetail) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Title
	}
	return out
}

func TestSorterLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blob := make([]byte, 64<<10)
	_, err := rand.Read(blob)
	require.NoError(t, err)

	created, err := f.programs.Create(ctx, owner, CreateProgramInput{
		Title:       "Sorter",
		Description: "sorts things",
		Language:    "Go",
		Version:     "0.1",
		File:        upload("sorter.bin", blob),
		CategoryIDs: []int64{1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, created.Status)
	assert.Equal(t, "Olive", created.Owner.Name)
	assert.Equal(t, []string{"algorithms"}, slugs(created.Categories))

	got, err := f.programs.Get(ctx, model.Actor{}, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sorter", got.Title)
	assert.Equal(t, int64(1), got.ViewCount)

	dl, err := f.programs.Download(ctx, model.Actor{}, created.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	require.NoError(t, dl.Body.Close())
	assert.Equal(t, blob, data)
	assert.Equal(t, int64(len(blob)), dl.Size)
	assert.Equal(t, artifact.Filename(created.FilePath), dl.Filename)

	stored, err := f.db.Programs().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.DownloadCount)

	require.NoError(t, f.programs.Delete(ctx, owner, created.ID))

	_, err = f.programs.Get(ctx, owner, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := f.store.Exists(ctx, created.FilePath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConcurrentDownloads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Grep", "search tool", model.StatusPublished)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dl, err := f.programs.Download(ctx, model.Actor{}, p.ID)
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, dl.Body)
			errs <- dl.Body.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.db.Programs().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stored.DownloadCount)
}

func TestUpdate_CategoriesKeptWhenKeyAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Snake", "a game", model.StatusPublished, 3)

	_, err := f.programs.Update(ctx, owner, p.ID, UpdateProgramInput{CategoryIDs: []int64{1, 2}})
	require.NoError(t, err)

	title := "x"
	updated, err := f.programs.Update(ctx, owner, p.ID, UpdateProgramInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "x", updated.Title)
	assert.ElementsMatch(t, []string{"algorithms", "games"}, slugs(updated.Categories))

	_, err = f.programs.Update(ctx, owner, p.ID, UpdateProgramInput{CategoryIDs: []int64{99}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["categories"], "99")

	cleared, err := f.programs.Update(ctx, owner, p.ID, UpdateProgramInput{CategoryIDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Categories)
}

func TestUpdate_ReplacesArtifactAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Tetris", "blocks", model.StatusPublished)

	updated, err := f.programs.Update(ctx, owner, p.ID, UpdateProgramInput{
		File: upload("tetris-v2.go", []byte("v2")),
	})
	require.NoError(t, err)
	assert.NotEqual(t, p.FilePath, updated.FilePath)

	oldExists, err := f.store.Exists(ctx, p.FilePath)
	require.NoError(t, err)
	assert.False(t, oldExists)

	dl, err := f.programs.Download(ctx, owner, p.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "v2", string(data))
}

func TestNonOwnerCannotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Vault", "secrets", model.StatusPublished, 3)

	title := "pwned"
	_, err := f.programs.Update(ctx, stranger, p.ID, UpdateProgramInput{
		Title:       &title,
		File:        upload("evil.go", []byte("evil")),
		CategoryIDs: []int64{},
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Admins may delete but not edit.
	_, err = f.programs.Update(ctx, admin, p.ID, UpdateProgramInput{Title: &title})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = f.programs.Delete(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, err := f.db.Programs().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vault", stored.Title)
	assert.Equal(t, p.FilePath, stored.FilePath)

	cats, err := f.db.Categories().ForPrograms(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"tools"}, slugs(cats[p.ID]))

	exists, err := f.store.Exists(ctx, p.FilePath)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, f.programs.Delete(ctx, admin, p.ID))
}

func TestList_SearchAndSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bubble := f.create(t, "Bubble Sort", "slow", model.StatusPublished)
	quick := f.create(t, "Quick", "a fast SORTING routine", model.StatusPublished)
	f.create(t, "Sort draft", "unfinished", model.StatusDraft)
	f.create(t, "Archived sort", "old", model.StatusArchived)
	f.create(t, "Chess", "a game", model.StatusPublished)

	for i := 0; i < 3; i++ {
		dl, err := f.programs.Download(ctx, model.Actor{}, bubble.ID)
		require.NoError(t, err)
		dl.Body.Close()
	}
	dl, err := f.programs.Download(ctx, model.Actor{}, quick.ID)
	require.NoError(t, err)
	dl.Body.Close()

	page, err := f.programs.List(ctx, ListProgramsInput{Search: "sort", Sort: "download_count", Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quick", "Bubble Sort"}, titles(page.Items))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.Nil(t, page.Items[0].Comments)
}

func TestList_ExcludesUnpublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Visible", "x", model.StatusPublished, 1)
	f.create(t, "Hidden draft", "x", model.StatusDraft, 1)
	f.create(t, "Hidden archive", "x", model.StatusArchived, 1)

	for _, in := range []ListProgramsInput{
		{},
		{Category: "algorithms"},
		{Search: "hidden"},
		{Sort: "title", Direction: "asc", PerPage: 100},
	} {
		page, err := f.programs.List(ctx, in)
		require.NoError(t, err)
		for _, p := range page.Items {
			assert.Equal(t, model.StatusPublished, p.Status, "filters %+v", in)
		}
	}
}

func TestList_InvalidSortFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "First", "x", model.StatusPublished)
	f.create(t, "Second", "x", model.StatusPublished)
	f.create(t, "Third", "x", model.StatusPublished)

	page, err := f.programs.List(ctx, ListProgramsInput{Sort: "owner_id", Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Third", "Second", "First"}, titles(page.Items))
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		f.create(t, title, "x", model.StatusPublished)
	}

	page, err := f.programs.List(ctx, ListProgramsInput{Sort: "title", Direction: "asc", Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, titles(page.Items))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 2, page.Page)

	page, err = f.programs.List(ctx, ListProgramsInput{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPerPage, page.PerPage)
}

func TestDraftVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Secret", "wip", model.StatusDraft)

	_, err := f.programs.Get(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.programs.Download(ctx, model.Actor{}, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.programs.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)

	_, err = f.programs.Get(ctx, admin, p.ID)
	require.NoError(t, err)

	stored, err := f.db.Programs().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ViewCount)
	assert.Zero(t, stored.DownloadCount)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.programs.Create(ctx, owner, CreateProgramInput{
		Title:       "   ",
		Description: "d",
		Language:    "Go",
		Version:     "1.0.0",
		Status:      "pending",
		Thumbnail:   upload("thumb.png", []byte("not an image at all")),
		CategoryIDs: []int64{1, 99},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "status")
	assert.Contains(t, ve.Fields, "file")
	assert.Contains(t, ve.Fields, "thumbnail")
	assert.Contains(t, ve.Fields["categories"], "99")
	assert.NotContains(t, ve.Fields, "description")

	page, err := f.programs.List(ctx, ListProgramsInput{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestCreate_FileTooLarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Declared size lies; the stream itself is over the limit.
	big := bytes.Repeat([]byte{'x'}, int(artifact.MaxProgramSize)+1)
	_, err := f.programs.Create(ctx, owner, CreateProgramInput{
		Title:       "Big",
		Description: "d",
		Language:    "Go",
		Version:     "1",
		File:        &artifact.Upload{Filename: "big.bin", Size: -1, Body: bytes.NewReader(big)},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "file")
}

func TestCreate_WithThumbnail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	d, err := f.programs.Create(ctx, owner, CreateProgramInput{
		Title:       "Paint",
		Description: "draws",
		Language:    "Go",
		Version:     "1",
		File:        upload("paint.go", []byte("package paint")),
		Thumbnail:   upload("paint.png", png),
	})
	require.NoError(t, err)
	require.NotNil(t, d.ThumbnailPath)

	thumb, err := f.programs.Thumbnail(ctx, model.Actor{}, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", thumb.ContentType)
	data, _ := io.ReadAll(thumb.Body)
	assert.Equal(t, png, data)

	require.NoError(t, f.programs.Delete(ctx, owner, d.ID))
	exists, err := f.store.Exists(ctx, *d.ThumbnailPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "Chat", "talks", model.StatusPublished)

	_, err := f.comments.Add(ctx, model.Actor{}, p.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.comments.Add(ctx, stranger, p.ID, "  ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "content")

	c, err := f.comments.Add(ctx, owner, p.ID, "  first!  ")
	require.NoError(t, err)
	assert.Equal(t, "first!", c.Content)
	assert.Equal(t, model.UserSummary{ID: owner.ID, Name: "Olive"}, c.Author)

	other, err := f.comments.Add(ctx, stranger, p.ID, "nice")
	require.NoError(t, err)
	assert.Equal(t, model.UserSummary{ID: stranger.ID}, other.Author)

	_, err = f.comments.Update(ctx, stranger, c.ID, "edited")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, f.comments.Delete(ctx, stranger, c.ID), ErrUnauthorized)

	edited, err := f.comments.Update(ctx, owner, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	got, err := f.programs.Get(ctx, model.Actor{}, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Comments)
	require.Len(t, *got.Comments, 2)

	require.NoError(t, f.comments.Delete(ctx, admin, other.ID))
	assert.ErrorIs(t, f.comments.Delete(ctx, admin, other.ID), ErrNotFound)

	require.NoError(t, f.programs.Delete(ctx, owner, p.ID))
	_, err = f.db.Comments().FindByID(ctx, c.ID)
	assert.Error(t, err)
}

func TestComments_OnlyOnPublishedPrograms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []model.ProgramStatus{model.StatusDraft, model.StatusArchived} {
		p := f.create(t, "Closed "+string(status), "no talking", status)

		for _, actor := range []model.Actor{owner, admin, stranger} {
			_, err := f.comments.Add(ctx, actor, p.ID, "hello")
			assert.ErrorIs(t, err, ErrNotFound, "status %s, actor %s", status, actor.ID)
		}

		thread, err := f.db.Comments().ListByProgram(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, thread)
	}
}
