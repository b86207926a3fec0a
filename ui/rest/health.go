package rest

import (
	"github.com/AzielCF/az-post/config"
	"github.com/AzielCF/az-post/pkg/dispatchpool"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Pool *dispatchpool.Pool
}

func InitRestHealth(app fiber.Router, pool *dispatchpool.Pool) Health {
	handler := Health{Pool: pool}
	app.Get("/health", handler.GetStatus)
	app.Get("/dispatch/stats", handler.GetPoolStats)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Service is healthy",
		Results: fiber.Map{
			"version":   config.Global.App.Version,
			"server_id": config.Global.App.ServerID,
		},
	})
}

// GetPoolStats returns real-time dispatch worker pool statistics.
func (h *Health) GetPoolStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Dispatch worker pool not initialized",
		})
	}
	return c.JSON(h.Pool.GetStats())
}
