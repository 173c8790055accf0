// Package pagination slices ordered lists into fixed-size pages.
package pagination

// DefaultSize is the page size used when none is configured.
const DefaultSize = 10

// Page is the visible part of a list plus navigation affordances.
type Page[T any] struct {
	Items   []T
	Index   int
	HasPrev bool
	HasNext bool
}

// Paginate returns page number page of items. It is pure: the same
// arguments always produce the same page. Pages past the end, and negative
// pages, are empty rather than an error. A non-positive size falls back to
// DefaultSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultSize
	}
	p := Page[T]{
		Index:   page,
		HasPrev: page > 0,
		Items:   []T{},
	}
	// page*size must not overflow
	if page < 0 || page > len(items)/size {
		return p
	}
	start := page * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.HasNext = end < len(items)
	p.Items = items[start:end:end]
	return p
}
