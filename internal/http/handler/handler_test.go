package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"programhub/internal/auth"
	"programhub/internal/http/middleware"
	"programhub/internal/model"
	"programhub/internal/service"
	serviceMocks "programhub/internal/service/mocks"
)

var user = model.Actor{ID: "u1"}

type testEnv struct {
	app        *fiber.App
	programs   *serviceMocks.MockProgramService
	comments   *serviceMocks.MockCommentService
	categories *serviceMocks.MockCategoryService
	token      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	v, err := auth.NewVerifier("handler-test-secret-handler-test-secret")
	require.NoError(t, err)
	token, err := v.Issue(user, time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		app:        fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		programs:   new(serviceMocks.MockProgramService),
		comments:   new(serviceMocks.MockCommentService),
		categories: new(serviceMocks.MockCategoryService),
		token:      token,
	}
	env.app.Use(middleware.RequestID())
	env.app.Use(middleware.Authenticate(v))
	RegisterRoutes(env.app, nil, Services{
		Programs:   env.programs,
		Comments:   env.comments,
		Categories: env.categories,
	})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, authed bool) *http.Response {
	t.Helper()
	if authed {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.token)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

type part struct {
	field, filename, content string
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := w.CreateFormFile(p.field, p.filename)
			require.NoError(t, err)
			_, err = fw.Write([]byte(p.content))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, w.WriteField(p.field, p.content))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("memory persistence", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListPrograms(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		page := &service.ProgramPage{
			Items:    []model.ProgramDetail{{Program: model.Program{ID: uuid.NewString(), Title: "Sorter"}}},
			Total:    1,
			Page:     2,
			PerPage:  5,
			LastPage: 1,
		}
		env.programs.On("List", mock.Anything, service.ListProgramsInput{
			Category:  "tools",
			Search:    "sort",
			Sort:      "title",
			Direction: "asc",
			Page:      2,
			PerPage:   5,
		}).Return(page, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/programs?category=tools&search=sort&sort=title&direction=asc&page=2&per_page=5", nil)
		resp := env.do(t, req, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		assert.Len(t, raw["data"], 1)
		assert.Equal(t, float64(1), raw["total"])
		assert.Equal(t, float64(2), raw["current_page"])
		assert.Equal(t, float64(5), raw["per_page"])
		assert.Equal(t, float64(1), raw["last_page"])
	})

	t.Run("service error", func(t *testing.T) {
		env.programs.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs", nil), false)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
	})
	env.programs.AssertExpectations(t)
}

func TestCreateProgram(t *testing.T) {
	env := newTestEnv(t)

	fields := []part{
		{field: "title", content: "Sorter"},
		{field: "description", content: "sorts"},
		{field: "programming_language", content: "Go"},
		{field: "version", content: "1.0"},
		{field: "categories[]", content: "1"},
		{field: "categories[]", content: "2"},
		{field: "file", filename: "sorter.go", content: "package main"},
	}

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, fields...)
		created := &model.ProgramDetail{Program: model.Program{ID: uuid.NewString(), Title: "Sorter"}}
		env.programs.On("Create", mock.Anything, user, mock.MatchedBy(func(in service.CreateProgramInput) bool {
			if in.File == nil || in.Thumbnail != nil {
				return false
			}
			data, _ := io.ReadAll(in.File.Body)
			return in.Title == "Sorter" &&
				in.Language == "Go" &&
				assert.ObjectsAreEqual([]int64{1, 2}, in.CategoryIDs) &&
				in.File.Filename == "sorter.go" &&
				in.File.Size == int64(len("package main")) &&
				string(data) == "package main"
		})).Return(created, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/programs", body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, true)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result model.ProgramDetail
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, created.ID, result.ID)
	})

	t.Run("anonymous", func(t *testing.T) {
		body, ct := multipartBody(t, fields...)
		req := httptest.NewRequest(http.MethodPost, "/programs", body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, false)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("validation error", func(t *testing.T) {
		body, ct := multipartBody(t, part{field: "title", content: "Sorter"})
		env.programs.On("Create", mock.Anything, user, mock.Anything).
			Return(nil, &service.ValidationError{Fields: map[string]string{"file": "is required"}}).Once()

		req := httptest.NewRequest(http.MethodPost, "/programs", body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, true)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
		assert.Equal(t, "is required", res.Error.Fields["file"])
		assert.NotEmpty(t, res.RequestID)
	})

	t.Run("non numeric category", func(t *testing.T) {
		body, ct := multipartBody(t, part{field: "categories", content: "1,games"})
		req := httptest.NewRequest(http.MethodPost, "/programs", body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, true)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp).Error.Fields, "categories")
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/programs", strings.NewReader(`{"title":"x"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_FORM", decodeError(t, resp).Error.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		body, ct := multipartBody(t, fields...)
		env.programs.On("Create", mock.Anything, user, mock.Anything).
			Return(nil, &service.StorageError{Op: "store artifact", Err: errors.New("bucket gone")}).Once()

		req := httptest.NewRequest(http.MethodPost, "/programs", body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, true)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "STORAGE_ERROR", decodeError(t, resp).Error.Code)
	})
	env.programs.AssertExpectations(t)
}

func TestGetProgram(t *testing.T) {
	env := newTestEnv(t)

	t.Run("anonymous read", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Get", mock.Anything, model.Actor{}, id).
			Return(&model.ProgramDetail{Program: model.Program{ID: id, ViewCount: 1}}, nil).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs/"+id, nil), false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.ProgramDetail
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, int64(1), result.ViewCount)
	})

	t.Run("not found", func(t *testing.T) {
		env.programs.On("Get", mock.Anything, user, "invalid-uuid").Return(nil, service.ErrNotFound).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs/invalid-uuid", nil), true)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})
	env.programs.AssertExpectations(t)
}

func TestUpdateProgram(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	t.Run("json without categories keeps them", func(t *testing.T) {
		env.programs.On("Update", mock.Anything, user, id, mock.MatchedBy(func(in service.UpdateProgramInput) bool {
			return in.Title != nil && *in.Title == "x" && in.Version == nil && in.CategoryIDs == nil && in.File == nil
		})).Return(&model.ProgramDetail{Program: model.Program{ID: id, Title: "x"}}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/programs/"+id, strings.NewReader(`{"title":"x"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("json with empty categories clears them", func(t *testing.T) {
		env.programs.On("Update", mock.Anything, user, id, mock.MatchedBy(func(in service.UpdateProgramInput) bool {
			return in.CategoryIDs != nil && len(in.CategoryIDs) == 0
		})).Return(&model.ProgramDetail{Program: model.Program{ID: id}}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/programs/"+id, strings.NewReader(`{"categories":[]}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("multipart via POST replaces file", func(t *testing.T) {
		body, ct := multipartBody(t,
			part{field: "status", content: "draft"},
			part{field: "file", filename: "v2.go", content: "v2"},
		)
		env.programs.On("Update", mock.Anything, user, id, mock.MatchedBy(func(in service.UpdateProgramInput) bool {
			return in.Status != nil && *in.Status == "draft" &&
				in.Title == nil &&
				in.CategoryIDs == nil &&
				in.File != nil && in.File.Filename == "v2.go"
		})).Return(&model.ProgramDetail{Program: model.Program{ID: id}}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/programs/"+id, body)
		req.Header.Set("Content-Type", ct)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("forbidden", func(t *testing.T) {
		env.programs.On("Update", mock.Anything, user, id, mock.Anything).Return(nil, service.ErrUnauthorized).Once()

		req := httptest.NewRequest(http.MethodPut, "/programs/"+id, strings.NewReader(`{"title":"x"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/programs/"+id, strings.NewReader(`{"title":`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	env.programs.AssertExpectations(t)
}

func TestDeleteProgram(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Delete", mock.Anything, user, id).Return(nil).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodDelete, "/programs/"+id, nil), true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body messageResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Program deleted successfully", body.Message)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Delete", mock.Anything, user, id).Return(service.ErrNotFound).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodDelete, "/programs/"+id, nil), true)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Delete", mock.Anything, user, id).Return(errors.New("delete error")).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodDelete, "/programs/"+id, nil), true)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
	env.programs.AssertExpectations(t)
}

func TestDownloadProgram(t *testing.T) {
	env := newTestEnv(t)

	t.Run("streams attachment", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Download", mock.Anything, model.Actor{}, id).Return(&service.Download{
			Body:        io.NopCloser(strings.NewReader("binary-bytes")),
			Filename:    "abc.zip",
			ContentType: "application/zip",
			Size:        12,
		}, nil).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs/"+id+"/download", nil), false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/zip", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, `attachment; filename="abc.zip"`, resp.Header.Get(fiber.HeaderContentDisposition))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "binary-bytes", string(data))
	})

	t.Run("storage failure", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Download", mock.Anything, model.Actor{}, id).
			Return(nil, &service.StorageError{Op: "open artifact", Err: errors.New("gone")}).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs/"+id+"/download", nil), false)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "STORAGE_ERROR", decodeError(t, resp).Error.Code)
	})

	t.Run("thumbnail", func(t *testing.T) {
		id := uuid.NewString()
		env.programs.On("Thumbnail", mock.Anything, model.Actor{}, id).Return(&service.Download{
			Body:        io.NopCloser(strings.NewReader("png")),
			Filename:    "t.png",
			ContentType: "image/png",
			Size:        3,
		}, nil).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/programs/"+id+"/thumbnail", nil), false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
		assert.Empty(t, resp.Header.Get(fiber.HeaderContentDisposition))
	})
	env.programs.AssertExpectations(t)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	programID := uuid.NewString()
	commentID := uuid.NewString()

	t.Run("add", func(t *testing.T) {
		env.comments.On("Add", mock.Anything, user, programID, "nice work").
			Return(&model.CommentDetail{Comment: model.Comment{ID: commentID, Content: "nice work"}}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/programs/"+programID+"/comments", strings.NewReader(`{"content":"nice work"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("add with empty body", func(t *testing.T) {
		env.comments.On("Add", mock.Anything, user, programID, "").
			Return(nil, &service.ValidationError{Fields: map[string]string{"content": "is required"}}).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodPost, "/programs/"+programID+"/comments", nil), true)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("update by other user", func(t *testing.T) {
		env.comments.On("Update", mock.Anything, user, commentID, "edit").Return(nil, service.ErrUnauthorized).Once()

		req := httptest.NewRequest(http.MethodPut, "/comments/"+commentID, strings.NewReader(`{"content":"edit"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp := env.do(t, req, true)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		env.comments.On("Delete", mock.Anything, user, commentID).Return(nil).Once()

		resp := env.do(t, httptest.NewRequest(http.MethodDelete, "/comments/"+commentID, nil), true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body messageResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Comment deleted successfully", body.Message)
	})

	t.Run("delete anonymous", func(t *testing.T) {
		resp := env.do(t, httptest.NewRequest(http.MethodDelete, "/comments/"+commentID, nil), false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
	env.comments.AssertExpectations(t)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)

	env.categories.On("List", mock.Anything).Return([]model.Category{{ID: 1, Name: "Games", Slug: "games"}}, nil).Once()
	env.categories.On("GetBySlug", mock.Anything, "games").Return(&model.Category{ID: 1, Name: "Games", Slug: "games"}, nil).Once()
	env.categories.On("GetBySlug", mock.Anything, "nope").Return(nil, service.ErrNotFound).Once()

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil), false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cats []model.Category
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cats))
	assert.Len(t, cats, 1)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/categories/games", nil), false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/categories/nope", nil), false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.categories.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	t.Run("not found route", func(t *testing.T) {
		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/non-existent", nil), false)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp := env.do(t, httptest.NewRequest(http.MethodPost, "/health", nil), false)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
