// handlers/heist_routes.go
package handlers

import (
	"errors"
	"strconv"

	"loyalty-heist-system/middleware"
	"loyalty-heist-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupHeistRoutes(app *fiber.App, heistService *services.HeistService,
	eligibility *services.EligibilityService, tokens *services.TokenService,
	stats *services.HeistStatsService) {

	// 🔐 Secured routes — require user context from Gateway
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/heist/tokens", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		snap, err := tokens.GetBalance(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load token balance",
				"cause": err.Error(),
			})
		}
		return c.JSON(snap)
	})

	securedGroup.Get("/user/heist/eligibility/:victimID", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		victimID := c.Params("victimID")

		// ?quick=true returns just the first-failure verdict (mobile
		// polls this before showing the attack button)
		if c.QueryBool("quick") {
			verdict, err := eligibility.Check(heistService.DB, userID, victimID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to evaluate eligibility",
					"cause": err.Error(),
				})
			}
			return c.JSON(verdict)
		}

		breakdown, err := eligibility.Breakdown(heistService.DB, userID, victimID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to evaluate eligibility",
				"cause": err.Error(),
			})
		}
		return c.JSON(breakdown)
	})

	securedGroup.Post("/user/heist/execute", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			VictimID string `json:"victim_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.VictimID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "victim_id is required",
			})
		}

		meta := &services.HeistMetadata{
			IPAddress: c.IP(),
			UserAgent: c.Get("User-Agent"),
		}

		result, err := heistService.ExecuteHeist(c.Context(), userID, req.VictimID, meta)
		if err != nil {
			// Mid-transaction token race: rolled back, nothing recorded.
			if errors.Is(err, services.ErrInsufficientTokens) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"success":    false,
					"error_code": services.ReasonInsufficientTokens,
					"detail":     "your last token was spent by a concurrent heist",
				})
			}
			// Serialization conflict exhausted its retries — retryable.
			if errors.Is(err, services.ErrHeistConflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"success":    false,
					"error_code": services.ReasonExecutionError,
					"detail":     "too much contention, try again",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":    false,
				"error_code": services.ReasonExecutionError,
				"detail":     "heist failed, try again",
			})
		}

		return c.JSON(result)
	})

	securedGroup.Get("/user/heist/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		offset, _ := strconv.Atoi(c.Query("offset", "0"))

		heists, total, err := stats.History(userID, services.HistoryFilter{
			Role:   c.Query("role"),
			Status: c.Query("status"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"heists": heists,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	})

	securedGroup.Get("/user/heist/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		summary, err := stats.Stats(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Get("/heist/config", func(c *fiber.Ctx) error {
		cfg := heistService.Config
		return c.JSON(fiber.Map{
			"enabled":                   cfg.Enabled,
			"token_cost":                cfg.TokenCost,
			"steal_percentage":          cfg.StealPercentage,
			"max_points_per_heist":      cfg.MaxPointsPerHeist,
			"min_victim_points":         cfg.MinVictimPoints,
			"attacker_cooldown_hours":   cfg.AttackerCooldownHours,
			"victim_protection_hours":   cfg.VictimProtectionHours,
			"max_heists_per_day":        cfg.MaxHeistsPerDay,
			"items_enabled":             cfg.ItemsEnabled,
			"min_protection_percentage": cfg.MinProtectionPercentage,
		})
	})
}
