// handlers/item_routes.go
package handlers

import (
	"errors"

	"loyalty-heist-system/middleware"
	"loyalty-heist-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupItemRoutes(app *fiber.App, itemService *services.ItemService, referralService *services.ReferralService) {
	// Catalog is visible to any gateway-authenticated request
	app.Get("/heist/items", func(c *fiber.Ctx) error {
		defs, err := itemService.Catalog()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(defs)
	})

	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/heist/items", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		items, err := itemService.OwnedItems(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load items",
				"cause": err.Error(),
			})
		}
		return c.JSON(items)
	})

	securedGroup.Post("/user/heist/items/:slug/purchase", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		itemSlug := c.Params("slug")

		item, err := itemService.PurchaseItem(c.Context(), userID, itemSlug)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrItemNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "item not found",
				})
			case errors.Is(err, services.ErrItemInactive):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "item is no longer purchasable",
				})
			case errors.Is(err, services.ErrInsufficientCoins):
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "not enough coins",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "purchase failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(item)
	})

	securedGroup.Post("/user/referrals/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		awarded, err := referralService.ProcessPendingForReferrer(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to process referrals",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"referrals_awarded": awarded,
		})
	})

	// Internal: the Auth Service reports new signups that used a referral
	// code. Gateway service-token auth only, no user context.
	app.Post("/s/internal/referrals", func(c *fiber.Ctx) error {
		type Req struct {
			ReferrerID string `json:"referrer_id"`
			ReferredID string `json:"referred_id"`
			Code       string `json:"code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.ReferrerID == "" || req.ReferredID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "referrer_id and referred_id are required",
			})
		}

		referral, err := referralService.CreateReferral(req.ReferrerID, req.ReferredID, req.Code)
		if err != nil {
			if errors.Is(err, services.ErrSelfReferral) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "self-referral is not allowed",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create referral",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(referral)
	})
}
