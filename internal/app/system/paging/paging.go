// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows shown in paged lists.
const PageSize = 50

// ParseStart extracts the human-friendly "start" query parameter (1-based
// index). Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Info describes one page of an offset-paged list. Start and End are 1-based
// and inclusive; both are 0 for an empty page.
type Info struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Total     int  `json:"total"`
	HasPrev   bool `json:"has_prev"`
	HasNext   bool `json:"has_next"`
	PrevStart int  `json:"prev_start,omitempty"`
	NextStart int  `json:"next_start,omitempty"`
}

// Slice returns the page of items beginning at start (1-based) with at most
// size entries. A start past the end yields the last page.
func Slice[T any](items []T, start, size int) ([]T, Info) {
	if size < 1 {
		size = PageSize
	}
	total := len(items)
	info := Info{Total: total}
	if total == 0 {
		return items[:0], info
	}

	if start < 1 {
		start = 1
	}
	if start > total {
		start = ((total-1)/size)*size + 1
	}
	end := min(start-1+size, total)

	info.Start = start
	info.End = end
	info.HasPrev = start > 1
	info.HasNext = end < total
	if info.HasPrev {
		info.PrevStart = max(start-size, 1)
	}
	if info.HasNext {
		info.NextStart = end + 1
	}
	return items[start-1 : end], info
}
