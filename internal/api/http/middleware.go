package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/observability"
	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

// RegisterMiddlewares attaches the global chain: per-request deadline, error
// rendering, then the request logger.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(deadlineMiddleware(timeout))
	}
	app.Use(errorRenderer(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func deadlineMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorRenderer turns DomainErrors into the JSON error envelope and keeps
// panics from killing the connection. A STORAGE_FAILED surfaces as 503 so the
// storefront can retry the write; BROADCAST_FAILED never reaches this path,
// fan-out failures are logged where they happen and the request still
// succeeds.
func errorRenderer(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			}
			switch domainErr.Code {
			case "STORAGE_FAILED":
				logger.Error("storage unavailable",
					zap.String("path", c.Path()), zap.Error(domainErr))
			case "INTERNAL_ERROR":
				logger.Error("request failed",
					zap.String("path", c.Path()), zap.Error(domainErr))
			}

			renderError(c, domainErr)
			err = nil
		}()
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, domainErr *apperrors.DomainError) {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	c.Status(domainErr.HTTPStatus)
	_ = c.JSON(fiber.Map{"error": body})
}
