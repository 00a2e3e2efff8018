package comments

// Page sizes used by the comment endpoints: top-level pages carry up to 20
// comments, reply pages up to 5.
const (
	TopPageSize   = 20
	ReplyPageSize = 5
)

// PaginationGate tracks the current 1-based page of a list and whether the
// last page has been reached. A page is known to be the last one once a fetch
// for it returned fewer items than the page size.
type PaginationGate struct {
	currentPage int
	isLast      bool
}

// NewPaginationGate returns a gate positioned on page 1.
func NewPaginationGate() *PaginationGate {
	return &PaginationGate{currentPage: 1}
}

// Advance moves to the next page unless the current page is known to be the
// last. Returns whether it moved.
func (g *PaginationGate) Advance() bool {
	if g.isLast {
		return false
	}
	g.currentPage++
	return true
}

// Retreat moves to the previous page unless already on page 1. Moving back
// clears the last-page mark: the page behind us necessarily has a full
// successor.
func (g *PaginationGate) Retreat() bool {
	if g.currentPage <= 1 {
		return false
	}
	g.currentPage--
	g.isLast = false
	return true
}

// RecordPageResult notes how many items the fetch for the current page
// returned. A short (or empty) page marks the list exhausted.
func (g *PaginationGate) RecordPageResult(itemCount, pageSize int) {
	g.isLast = itemCount < pageSize
}

// CurrentPage returns the 1-based page the gate is on.
func (g *PaginationGate) CurrentPage() int {
	return g.currentPage
}

// IsLastPage reports whether the current page is known to be the last.
func (g *PaginationGate) IsLastPage() bool {
	return g.isLast
}
