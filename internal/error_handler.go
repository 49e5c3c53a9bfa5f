package internal

import (
	"errors"
	"net/http"

	"github.com/dushixiang/tradingmode/internal/xe"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// statusOf orz 错误对应的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, xe.ErrIncorrectPassword):
		return http.StatusUnauthorized
	case errors.Is(err, xe.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, xe.ErrExchangeCall):
		return http.StatusBadGateway
	case errors.Is(err, xe.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, xe.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func WithErrorHandler(logger *zap.Logger) func(next echo.HandlerFunc) echo.HandlerFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return c.JSON(he.Code, orz.Map{
						"code":    he.Code,
						"message": err.Error(),
					})
				}

				var oe *orz.Error
				if errors.As(err, &oe) {
					code := statusOf(err)
					if code >= http.StatusInternalServerError {
						logger.Error("api", zap.String("path", c.Path()), zap.Error(err))
					}
					return c.JSON(code, orz.Map{
						"code":    oe.Code,
						"message": err.Error(),
					})
				}

				logger.Sugar().Error("api", zap.Error(err))

				return c.JSON(500, orz.Map{
					"code":    500,
					"message": err.Error(),
				})
			}
			return nil
		}
	}
}
