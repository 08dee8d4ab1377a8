package handler

import (
	"github.com/gofiber/fiber/v2"

	"programhub/internal/http/middleware"
	"programhub/internal/service"
)

type updateProgramRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Language    *string  `json:"programming_language"`
	Version     *string  `json:"version"`
	Status      *string  `json:"status"`
	Categories  *[]int64 `json:"categories"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ListPrograms godoc
// @Summary  List published programs
// @Tags     programs
// @Produce  json
// @Param    category   query string false "category slug"
// @Param    search     query string false "substring of title or description"
// @Param    sort       query string false "created_at, title, download_count or view_count"
// @Param    direction  query string false "asc or desc"
// @Param    page       query int    false "page number"
// @Param    per_page   query int    false "page size (max 100)"
// @Success  200 {object} service.ProgramPage
// @Router   /programs [get]
func ListPrograms(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := svc.List(c.UserContext(), service.ListProgramsInput{
			Category:  c.Query("category"),
			Search:    c.Query("search"),
			Sort:      c.Query("sort"),
			Direction: c.Query("direction"),
			Page:      c.QueryInt("page", 1),
			PerPage:   c.QueryInt("per_page", 0),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(page)
	}
}

// CreateProgram godoc
// @Summary  Upload a program
// @Tags     programs
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    title                formData string true  "title"
// @Param    description          formData string true  "description"
// @Param    programming_language formData string true  "language"
// @Param    version              formData string true  "version"
// @Param    status               formData string false "published, draft or archived"
// @Param    categories           formData string false "comma separated category ids"
// @Param    file                 formData file   true  "program artifact (max 10 MiB)"
// @Param    thumbnail            formData file   false "thumbnail image (max 2 MiB)"
// @Success  201 {object} model.ProgramDetail
// @Failure  422 {object} errorPayload
// @Router   /programs [post]
func CreateProgram(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "expected multipart/form-data")
		}

		ids, _, err := categoryIDs(form.Value)
		if err != nil {
			return writeValidation(c, categoryValidation())
		}
		in := service.CreateProgramInput{
			Title:       formValue(form.Value, "title"),
			Description: formValue(form.Value, "description"),
			Language:    formValue(form.Value, "programming_language"),
			Version:     formValue(form.Value, "version"),
			Status:      formValue(form.Value, "status"),
			CategoryIDs: ids,
		}

		files := &uploads{}
		defer files.Close()
		if in.File, err = files.open(form, "file"); err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		if in.Thumbnail, err = files.open(form, "thumbnail"); err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}

		d, err := svc.Create(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// GetProgram godoc
// @Summary  Show a program with its comments
// @Tags     programs
// @Produce  json
// @Param    id path string true "program id"
// @Success  200 {object} model.ProgramDetail
// @Failure  404 {object} errorPayload
// @Router   /programs/{id} [get]
func GetProgram(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := svc.Get(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(d)
	}
}

// UpdateProgram godoc
// @Summary  Update a program
// @Description Accepts JSON for metadata-only changes or multipart/form-data to replace files.
// @Description Omitted fields are left unchanged; an empty categories value clears the links.
// @Tags     programs
// @Accept   json,mpfd
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "program id"
// @Success  200 {object} model.ProgramDetail
// @Failure  403 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /programs/{id} [put]
func UpdateProgram(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.UpdateProgramInput
		files := &uploads{}
		defer files.Close()

		if c.Is("json") {
			var req updateProgramRequest
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
			}
			in = service.UpdateProgramInput{
				Title:       req.Title,
				Description: req.Description,
				Language:    req.Language,
				Version:     req.Version,
				Status:      req.Status,
			}
			if req.Categories != nil {
				in.CategoryIDs = append([]int64{}, *req.Categories...)
			}
		} else {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "expected JSON or multipart/form-data")
			}
			ids, present, err := categoryIDs(form.Value)
			if err != nil {
				return writeValidation(c, categoryValidation())
			}
			in = service.UpdateProgramInput{
				Title:       formPtr(form.Value, "title"),
				Description: formPtr(form.Value, "description"),
				Language:    formPtr(form.Value, "programming_language"),
				Version:     formPtr(form.Value, "version"),
				Status:      formPtr(form.Value, "status"),
			}
			if present {
				in.CategoryIDs = ids
			}
			if in.File, err = files.open(form, "file"); err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			if in.Thumbnail, err = files.open(form, "thumbnail"); err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
		}

		d, err := svc.Update(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(d)
	}
}

// DeleteProgram godoc
// @Summary  Delete a program and its files
// @Tags     programs
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "program id"
// @Success  200 {object} messageResponse
// @Failure  403 {object} errorPayload
// @Router   /programs/{id} [delete]
func DeleteProgram(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(messageResponse{Message: "Program deleted successfully"})
	}
}

// DownloadProgram godoc
// @Summary  Download the program artifact
// @Tags     programs
// @Produce  octet-stream
// @Param    id path string true "program id"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Router   /programs/{id}/download [get]
func DownloadProgram(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dl, err := svc.Download(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+dl.Filename+`"`)
		return sendStream(c, dl)
	}
}

// ProgramThumbnail godoc
// @Summary  Show the program thumbnail
// @Tags     programs
// @Produce  image/png,image/jpeg,image/gif,image/webp
// @Param    id path string true "program id"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Router   /programs/{id}/thumbnail [get]
func ProgramThumbnail(svc service.ProgramService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dl, err := svc.Thumbnail(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
		return sendStream(c, dl)
	}
}

// sendStream hands the body to fasthttp, which closes it after writing.
func sendStream(c *fiber.Ctx, dl *service.Download) error {
	c.Set(fiber.HeaderContentType, dl.ContentType)
	size := int(dl.Size)
	if dl.Size <= 0 {
		size = -1
	}
	return c.SendStream(dl.Body, size)
}
