package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdash/internal/constants"
)

// PageParams holds the pagination parameters of a task list page
type PageParams struct {
	// Page is the 1-based page number shown to users
	Page int
	// PageIndex is the 0-based page passed to the query layer
	PageIndex int
	PerPage   int
}

// PageCount returns the number of pages needed for count rows
func (p PageParams) PageCount(count int64) int {
	return PageCount(count, p.PerPage)
}

// GetPageParams reads ?page= from the request. Missing, unparsable or
// out-of-range values fall back to the first page.
func GetPageParams(c *gin.Context) PageParams {
	return NewPageParams(c.Query("page"))
}

// maxPage is the last page whose row offset still fits in an int
const maxPage = math.MaxInt/constants.TasksPerPage + 1

// NewPageParams parses a raw page value
func NewPageParams(raw string) PageParams {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < constants.MinPage || page > maxPage {
		page = constants.MinPage
	}

	return PageParams{
		Page:      page,
		PageIndex: page - 1,
		PerPage:   constants.TasksPerPage,
	}
}

// PageCount returns ceil(count / perPage)
func PageCount(count int64, perPage int) int {
	if perPage <= 0 || count <= 0 {
		return 0
	}
	pages := count / int64(perPage)
	if count%int64(perPage) > 0 {
		pages++
	}
	return int(pages)
}
