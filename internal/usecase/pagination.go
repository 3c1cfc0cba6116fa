package usecase

import "math"

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// maxPage keeps Offset well inside the range Postgres accepts for OFFSET.
	maxPage = math.MaxInt32 / maxPageLimit
)

// Page is a 1-based page request as it arrives from the HTTP layer.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to sane values: page in [1, maxPage], limit in [1, 100], default 20.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }
