package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/observability"
)

const bodyLimit = 1 << 20

// NewApp builds the fiber application with global middlewares attached.
// Routes are added by RegisterRoutes.
func NewApp(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             bodyLimit,
		ProxyHeader:           cfg.App.ProxyHeader,
		ErrorHandler:          ErrorHandler(logger, metrics),
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, cfg, logger, metrics)
	return app
}
