package core

import (
	"strconv"

	"github.com/pkg/errors"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page holds limit/offset pagination parameters.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPage is the first page with the default limit.
var DefaultPage = Page{Limit: DefaultPageLimit}

// ParsePage cleans raw limit and offset query values.
// Empty values get defaults, limits above MaxPageLimit are capped.
func ParsePage(limitStr, offsetStr string) (Page, error) {
	p := DefaultPage
	var fields []FieldError

	if s := CleanString(limitStr); s != "" {
		limit, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fields = append(fields, FieldError{Field: "limit", Error: "must be a number"})
		case limit < 0:
			fields = append(fields, FieldError{Field: "limit", Error: "must not be negative"})
		case limit == 0:
			p.Limit = DefaultPageLimit
		case limit > MaxPageLimit:
			p.Limit = MaxPageLimit
		default:
			p.Limit = limit
		}
	}

	if s := CleanString(offsetStr); s != "" {
		offset, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fields = append(fields, FieldError{Field: "offset", Error: "must be a number"})
		case offset < 0:
			fields = append(fields, FieldError{Field: "offset", Error: "must not be negative"})
		default:
			p.Offset = offset
		}
	}

	if len(fields) > 0 {
		return DefaultPage, NewValidationError(errors.New("invalid pagination"), fields...)
	}
	return p, nil
}

// Slice returns the [start:end) bounds of the page within a collection of n items.
func (p Page) Slice(n int) (int, int) {
	if p.Offset >= n {
		return n, n
	}
	end := p.Offset + p.Limit
	if end > n {
		end = n
	}
	return p.Offset, end
}
