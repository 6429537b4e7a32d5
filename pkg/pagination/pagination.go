// Package pagination reads page and limit query parameters.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds a 1-based page and a clamped page size.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before the page starts.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit. page_size is accepted as an alias of limit.
// Missing or invalid values fall back to the defaults.
func Parse(c *gin.Context) Params {
	limitKey := "limit"
	if c.Query(limitKey) == "" && c.Query("page_size") != "" {
		limitKey = "page_size"
	}

	p := Params{Page: queryInt(c, "page", 1), Limit: queryInt(c, limitKey, DefaultLimit)}
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}
