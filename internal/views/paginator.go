package views

// DefaultPageSize is the session list window used when no size is given.
const DefaultPageSize = 3

// Paginator windows an ordered, frequently mutated list into fixed-size
// pages. It tracks only lengths and the current index; callers slice the
// list itself with PageOf after every recompute.
type Paginator struct {
	size   int
	index  int
	length int
}

// NewPaginator creates a paginator with the given page size. Sizes below
// one fall back to DefaultPageSize.
func NewPaginator(size int) *Paginator {
	if size < 1 {
		size = DefaultPageSize
	}
	return &Paginator{size: size}
}

// SetLength records the list's current length and clamps the page index
// to the last valid page when the list shrank under it. An empty list
// clamps to index 0.
func (p *Paginator) SetLength(n int) {
	if n < 0 {
		n = 0
	}
	p.length = n
	if last := p.PageCount() - 1; p.index > last {
		p.index = max(last, 0)
	}
}

// PageCount returns ceil(length / size). Zero pages means no pagination
// controls are shown.
func (p *Paginator) PageCount() int {
	return (p.length + p.size - 1) / p.size
}

// Index returns the current page index.
func (p *Paginator) Index() int {
	return p.index
}

// SetIndex moves to the given page, clamped into the valid range.
func (p *Paginator) SetIndex(i int) {
	last := max(p.PageCount()-1, 0)
	p.index = min(max(i, 0), last)
}

// Next advances one page, clamping at the end.
func (p *Paginator) Next() {
	p.SetIndex(p.index + 1)
}

// Prev steps back one page, clamping at the start.
func (p *Paginator) Prev() {
	p.SetIndex(p.index - 1)
}

// Bounds returns the half-open range [lo, hi) of the current page.
func (p *Paginator) Bounds() (lo, hi int) {
	lo = min(p.index*p.size, p.length)
	hi = min(lo+p.size, p.length)
	return lo, hi
}

// PageOf records the list's length on the paginator and returns the
// slice for the current page.
func PageOf[T any](items []T, p *Paginator) []T {
	p.SetLength(len(items))
	lo, hi := p.Bounds()
	return items[lo:hi]
}
