package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit ограничивает частоту запросов с одного IP. rate в формате limiter: "100-M", "10-S".
// Пустая строка отключает ограничение.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}
	instance := limiter.New(memory.NewStore(), parsed)
	middleware := stdlib.NewMiddleware(instance)

	return func(c *gin.Context) {
		passed := false
		middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}, nil
}
