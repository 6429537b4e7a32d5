package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parse(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParseDefaults(t *testing.T) {
	p := parse("")
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, p)
	assert.Equal(t, 0, p.Offset())
}

func TestParseClamps(t *testing.T) {
	p := parse("page=3&limit=500")
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 2*MaxLimit, p.Offset())

	p = parse("page=-1&limit=0")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)

	p = parse("page=abc&limit=xyz")
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, p)
}

func TestParsePageSizeAlias(t *testing.T) {
	assert.Equal(t, 5, parse("page_size=5").Limit)
	assert.Equal(t, 7, parse("limit=7&page_size=5").Limit)
}
