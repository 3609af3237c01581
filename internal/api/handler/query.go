package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/service"
)

const maxPageSize = 500

// parseTableQuery reads search, sort, order, offset and limit from the
// query string.
func parseTableQuery(c *gin.Context, pageSize int) service.TableQuery {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return service.TableQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.Query("sort"),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
		Offset: offset,
		Limit:  limit,
	}
}

func orderOf(q service.TableQuery) string {
	if q.Desc {
		return "desc"
	}
	return "asc"
}

// tableHref builds a jobs table link for q.
func tableHref(q service.TableQuery) string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
		v.Set("order", orderOf(q))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

// column is a sortable jobs table header.
type column struct {
	Title  string
	Href   string
	Active bool
}

var tableColumns = []struct {
	title string
	field string
}{
	{"Name", jobview.SortByName},
	{"Provider", jobview.SortByProvider},
	{"Publisher", jobview.SortByPublisher},
	{"Created", jobview.SortByCreated},
	{"Started", jobview.SortByStarted},
	{"Completed", jobview.SortByCompleted},
	{"Duration", jobview.SortByDuration},
}

// columnsFor returns the header links; clicking the active column flips
// the order.
func columnsFor(q service.TableQuery) []column {
	cols := make([]column, 0, len(tableColumns))
	for _, tc := range tableColumns {
		next := service.TableQuery{Search: q.Search, Sort: tc.field}
		active := q.Sort == tc.field
		if active {
			next.Desc = !q.Desc
		}
		cols = append(cols, column{Title: tc.title, Href: tableHref(next), Active: active})
	}
	return cols
}
