// Package pagination parses offset pagination query parameters and shapes paged responses.
package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	domain "github.com/tailor-market/api/internal/domain"
)

const (
	// DefaultLimit is used when the client omits limit.
	DefaultLimit = 20
	// MaxLimit caps limit to prevent unbounded queries.
	MaxLimit = 100
)

var (
	ErrInvalidLimit  = errors.New("pagination: invalid limit")
	ErrInvalidOffset = errors.New("pagination: invalid offset")
	ErrInvalidSort   = errors.New("pagination: invalid sort")
)

// Params is the parsed limit, offset and sort of a list request.
type Params struct {
	Limit  int
	Offset int
	Sort   domain.SortOrder
}

// Parse reads limit, offset and sort ("asc" or "desc", default desc). Limits above MaxLimit are clamped.
func Parse(values url.Values) (Params, error) {
	params := Params{Limit: DefaultLimit, Sort: domain.SortDesc}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Params{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidLimit)
		}
		params.Limit = min(limit, MaxLimit)
	}

	if raw := strings.TrimSpace(values.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Params{}, fmt.Errorf("%w: must be a non-negative integer", ErrInvalidOffset)
		}
		params.Offset = offset
	}

	switch sort := domain.SortOrder(strings.ToLower(strings.TrimSpace(values.Get("sort")))); sort {
	case "":
	case domain.SortAsc, domain.SortDesc:
		params.Sort = sort
	default:
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidSort, sort)
	}
	return params, nil
}

// Response is the JSON shape of a paged list.
type Response[T any] struct {
	Items      []T  `json:"items"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	NextOffset *int `json:"nextOffset,omitempty"`
}

// NewResponse maps a page through convert. NextOffset is set only when another page exists.
func NewResponse[T, R any](page domain.Page[T], convert func(T) R) Response[R] {
	items := make([]R, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	resp := Response[R]{Items: items, Limit: page.Limit, Offset: page.Offset}
	if page.HasMore {
		next := page.Offset + len(page.Items)
		resp.NextOffset = &next
	}
	return resp
}
