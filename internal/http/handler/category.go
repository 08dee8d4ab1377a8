package handler

import (
	"github.com/gofiber/fiber/v2"

	"programhub/internal/service"
)

// ListCategories godoc
// @Summary  List categories
// @Tags     categories
// @Produce  json
// @Success  200 {array} model.Category
// @Router   /categories [get]
func ListCategories(svc service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := svc.List(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cats)
	}
}

// GetCategory godoc
// @Summary  Show a category
// @Tags     categories
// @Produce  json
// @Param    slug path string true "category slug"
// @Success  200 {object} model.Category
// @Failure  404 {object} errorPayload
// @Router   /categories/{slug} [get]
func GetCategory(svc service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := svc.GetBySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cat)
	}
}
