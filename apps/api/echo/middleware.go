package echoapi

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	metricsvc "github.com/trezcool/summercamps/services/metrics"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// organiserMiddleware lets admins through, and organisers attached to an organisation.
func organiserMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin || (claims.IsOrganiser && claims.Organisation != "") {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func requestLogMiddleware(logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			req, res := ctx.Request(), ctx.Response()
			logger.Info(
				fmt.Sprintf("%s %s %d", req.Method, req.URL.Path, res.Status),
				map[string]interface{}{
					"latency": time.Since(start).String(),
					"ip":      ctx.RealIP(),
					"bytes":   res.Size,
				},
			)
			return nil
		}
	}
}

// metricsMiddleware labels requests by route pattern, not raw path.
func metricsMiddleware(metrics *metricsvc.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
