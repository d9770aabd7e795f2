// Package handler holds request helpers shared by the HTTP handlers.
package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/surveillance-api/pkg/errors"
)

// Handler is implemented by every route group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// OptionalQuery returns the trimmed query value, or nil when it is absent or
// blank.
func OptionalQuery(c *gin.Context, name string) *string {
	v, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// OptionalInt parses the first present parameter among names. Aliases are
// checked in order.
func OptionalInt(c *gin.Context, names ...string) (*int, error) {
	for _, name := range names {
		raw := OptionalQuery(c, name)
		if raw == nil {
			continue
		}
		n, err := strconv.Atoi(*raw)
		if err != nil {
			return nil, errors.BadRequest(fmt.Sprintf("%s must be an integer", name), err)
		}
		return &n, nil
	}
	return nil, nil
}

// IntDefault parses name, falling back to def when absent. Values below min
// are rejected.
func IntDefault(c *gin.Context, name string, def, min int) (int, error) {
	n, err := OptionalInt(c, name)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return def, nil
	}
	if *n < min {
		return 0, errors.BadRequest(fmt.Sprintf("%s must be at least %d", name, min), nil)
	}
	return *n, nil
}
