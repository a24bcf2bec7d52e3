package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListParams are the standard list-endpoint query parameters:
// ?page=1&limit=20&status=pending&search=...&sort=created_at&order=desc
type ListParams struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Status    string `json:"status"`
	Search    string `json:"search"`
	SortField string `json:"sort"`
	SortOrder string `json:"order"`
}

// Pagination is the metadata block returned alongside list results
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ParseListParams extracts list parameters from the request, clamping
// pagination to sane bounds.
func ParseListParams(c *gin.Context, defaultSort string) ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	sortField := c.DefaultQuery("sort", defaultSort)
	sortOrder := strings.ToLower(c.DefaultQuery("order", "desc"))
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return ListParams{
		Page:      page,
		Limit:     limit,
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		SortField: sortField,
		SortOrder: sortOrder,
	}
}

// ApplyStatusFilter narrows a query to one status when requested
func ApplyStatusFilter(query *gorm.DB, status string) *gorm.DB {
	if status == "" {
		return query
	}
	return query.Where("status = ?", status)
}

// ApplySearch matches the search term against any of the given columns
func ApplySearch(query *gorm.DB, search string, searchFields []string) *gorm.DB {
	if search == "" || len(searchFields) == 0 {
		return query
	}

	conditions := make([]string, len(searchFields))
	args := make([]interface{}, len(searchFields))
	for i, field := range searchFields {
		conditions[i] = fmt.Sprintf("%s ILIKE ?", field)
		args[i] = "%" + search + "%"
	}

	return query.Where(strings.Join(conditions, " OR "), args...)
}

// ApplySort orders the query, falling back to created_at when the
// requested column is not allow-listed.
func ApplySort(query *gorm.DB, params ListParams, allowedSortFields map[string]string) *gorm.DB {
	if dbField, allowed := allowedSortFields[params.SortField]; allowed {
		return query.Order(fmt.Sprintf("%s %s", dbField, strings.ToUpper(params.SortOrder)))
	}
	return query.Order("created_at DESC")
}

// ApplyPagination offsets and limits the query for the requested page
func ApplyPagination(query *gorm.DB, params ListParams) *gorm.DB {
	offset := (params.Page - 1) * params.Limit
	return query.Offset(offset).Limit(params.Limit)
}

// BuildPagination creates the pagination metadata for a result set
func BuildPagination(params ListParams, total int64) Pagination {
	totalPages := (total + int64(params.Limit) - 1) / int64(params.Limit)

	return Pagination{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < int(totalPages),
		HasPrev:    params.Page > 1,
	}
}
