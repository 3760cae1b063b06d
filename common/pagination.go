package common

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"heritage/apierror"
)

// PageParams is a validated page/limit window taken from query parameters.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages computes ceil(totalItems/limit) for the window.
func (p PageParams) TotalPages(totalItems int64) int {
	return int((totalItems + int64(p.Limit) - 1) / int64(p.Limit))
}

// ParsePageParams reads page and limit from the query string, falling back to
// defaultLimit. Non-positive values are rejected before any query runs.
func ParsePageParams(c *gin.Context, defaultLimit int) (PageParams, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PageParams{}, apierror.Parameter("invalid page parameter")
		}
		page = n
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PageParams{}, apierror.Parameter("invalid limit parameter")
		}
		limit = n
	}

	if page <= 0 || limit <= 0 {
		return PageParams{}, apierror.Parameter("pagination parameters must be positive")
	}

	return PageParams{Page: page, Limit: limit}, nil
}
