package comments

import "sync/atomic"

// PlaceholderAllocator hands out ids for locally-created comments that the
// server has not confirmed yet. Ids are strictly negative and never repeat
// within a session, so two pending posts can never collide.
type PlaceholderAllocator interface {
	Next() int64
}

type placeholderSeq struct {
	n atomic.Int64
}

// NewPlaceholderAllocator returns an allocator yielding -1, -2, -3, ...
// It is safe for concurrent use.
func NewPlaceholderAllocator() PlaceholderAllocator {
	return &placeholderSeq{}
}

func (s *placeholderSeq) Next() int64 {
	return s.n.Add(-1)
}
