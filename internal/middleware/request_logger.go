package middleware

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"invoicer/internal/logger"
)

// RequestLogger logs one structured line per request
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"api_version", APIVersionFromContext(c),
			}
			if v.RequestID != "" {
				fields = append(fields, "request_id", v.RequestID)
			}

			switch {
			case v.Error != nil:
				log.Errorw("request failed", append(fields, "error", v.Error)...)
			case v.Status >= 500:
				log.Errorw("request completed", fields...)
			case v.Status >= 400:
				log.Warnw("request completed", fields...)
			default:
				log.Infow("request completed", fields...)
			}
			return nil
		},
	})
}
