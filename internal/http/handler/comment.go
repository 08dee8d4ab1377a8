package handler

import (
	"github.com/gofiber/fiber/v2"

	"programhub/internal/http/middleware"
	"programhub/internal/service"
)

type commentRequest struct {
	Content string `json:"content" form:"content"`
}

func parseComment(c *fiber.Ctx) (string, error) {
	var req commentRequest
	if len(c.Body()) == 0 {
		return "", nil
	}
	if err := c.BodyParser(&req); err != nil {
		return "", err
	}
	return req.Content, nil
}

// AddComment godoc
// @Summary  Comment on a program
// @Tags     comments
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string         true "program id"
// @Param    body body commentRequest true "comment"
// @Success  201 {object} model.CommentDetail
// @Failure  422 {object} errorPayload
// @Router   /programs/{id}/comments [post]
func AddComment(svc service.CommentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := parseComment(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		d, err := svc.Add(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), content)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// UpdateComment godoc
// @Summary  Edit a comment
// @Tags     comments
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string         true "comment id"
// @Param    body body commentRequest true "comment"
// @Success  200 {object} model.CommentDetail
// @Failure  403 {object} errorPayload
// @Router   /comments/{id} [put]
func UpdateComment(svc service.CommentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := parseComment(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		d, err := svc.Update(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), content)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(d)
	}
}

// DeleteComment godoc
// @Summary  Delete a comment
// @Tags     comments
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "comment id"
// @Success  200 {object} messageResponse
// @Router   /comments/{id} [delete]
func DeleteComment(svc service.CommentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(messageResponse{Message: "Comment deleted successfully"})
	}
}
