package query

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParseListParams(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		params := ParseListParams(newTestContext(t, ""), "created_at")

		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 20, params.Limit)
		assert.Equal(t, "created_at", params.SortField)
		assert.Equal(t, "desc", params.SortOrder)
		assert.Empty(t, params.Status)
		assert.Empty(t, params.Search)
	})

	t.Run("reads provided values", func(t *testing.T) {
		params := ParseListParams(newTestContext(t, "page=3&limit=5&status=pending&search=ana&sort=email&order=asc"), "created_at")

		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 5, params.Limit)
		assert.Equal(t, "pending", params.Status)
		assert.Equal(t, "ana", params.Search)
		assert.Equal(t, "email", params.SortField)
		assert.Equal(t, "asc", params.SortOrder)
	})

	t.Run("clamps out-of-range pagination", func(t *testing.T) {
		params := ParseListParams(newTestContext(t, "page=0&limit=5000"), "created_at")

		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 100, params.Limit)
	})

	t.Run("rejects unknown sort order", func(t *testing.T) {
		params := ParseListParams(newTestContext(t, "order=sideways"), "created_at")

		assert.Equal(t, "desc", params.SortOrder)
	})
}

func TestBuildPagination(t *testing.T) {
	t.Run("middle page has both neighbours", func(t *testing.T) {
		meta := BuildPagination(ListParams{Page: 2, Limit: 10}, 35)

		assert.Equal(t, int64(35), meta.Total)
		assert.Equal(t, int64(4), meta.TotalPages)
		assert.True(t, meta.HasNext)
		assert.True(t, meta.HasPrev)
	})

	t.Run("single page has no neighbours", func(t *testing.T) {
		meta := BuildPagination(ListParams{Page: 1, Limit: 10}, 7)

		assert.Equal(t, int64(1), meta.TotalPages)
		assert.False(t, meta.HasNext)
		assert.False(t, meta.HasPrev)
	})

	t.Run("empty result set", func(t *testing.T) {
		meta := BuildPagination(ListParams{Page: 1, Limit: 10}, 0)

		assert.Equal(t, int64(0), meta.TotalPages)
		assert.False(t, meta.HasNext)
	})
}
