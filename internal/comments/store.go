package comments

import (
	"sync"

	"video-comments/internal/models"
)

// ThreadState tracks how much of one thread's reply list has been loaded.
type ThreadState struct {
	// FetchedPages counts reply pages requested so far; FetchedPages *
	// ReplyPageSize replies have been asked for.
	FetchedPages int
	// TotalReplies is the server-reported reply count for the root.
	TotalReplies int
	// Expanded reports whether the thread currently shows its replies.
	Expanded bool
}

// FullyLoaded reports whether every reply of the thread has been requested.
func (s ThreadState) FullyLoaded() bool {
	return s.FetchedPages*ReplyPageSize >= s.TotalReplies
}

type positionKind int

const (
	posPrependTopLevel positionKind = iota
	posAppendToThread
	posAfterReply
)

// Position says where an optimistically-inserted comment goes.
type Position struct {
	kind    positionKind
	rootID  int64
	afterID int64
}

// PrependTopLevel places the comment at the head of the top-level list.
func PrependTopLevel() Position {
	return Position{kind: posPrependTopLevel}
}

// AppendToThread places the comment at the end of a root's reply sequence.
func AppendToThread(rootID int64) Position {
	return Position{kind: posAppendToThread, rootID: rootID}
}

// AfterReply places the comment directly after an existing reply within a
// root's reply sequence.
func AfterReply(rootID, afterID int64) Position {
	return Position{kind: posAfterReply, rootID: rootID, afterID: afterID}
}

// Store holds the comment state for a single video: the currently displayed
// top-level page and, per thread root, a lazily-populated reply sequence.
// Nothing here survives navigation away from the video; a new Store is built
// per subject.
type Store struct {
	mu       sync.RWMutex
	topLevel []models.Comment
	replies  map[int64][]models.Comment
	threads  map[int64]*ThreadState
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		replies: make(map[int64][]models.Comment),
		threads: make(map[int64]*ThreadState),
	}
}

// ReplaceTopLevel swaps in a freshly fetched top-level page. Paging uses
// clear-and-redraw semantics: previously displayed roots, their replies and
// their load state are discarded wholesale, and thread state is rebuilt for
// every root that has replies to expand.
func (s *Store) ReplaceTopLevel(items []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topLevel = make([]models.Comment, len(items))
	copy(s.topLevel, items)
	s.replies = make(map[int64][]models.Comment)
	s.threads = make(map[int64]*ThreadState)
	for _, c := range items {
		if c.ReplyNum > 0 {
			s.threads[c.ID] = &ThreadState{TotalReplies: c.ReplyNum}
		}
	}
}

// AppendReplies adds a fetched reply page to a thread in received order and
// counts the page against the thread's load state. Items are trusted to be
// new; the server never resends a page that was already requested.
func (s *Store) AppendReplies(rootID int64, items []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies[rootID] = append(s.replies[rootID], items...)
	st := s.ensureThread(rootID)
	st.FetchedPages++
	st.Expanded = true
}

// CollapseReplies discards a thread's fetched replies and resets its load
// state, so the next expand re-fetches from page 1. Dropping the cached
// replies keeps re-expansion consistent with the server at the cost of a
// re-fetch.
func (s *Store) CollapseReplies(rootID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.replies, rootID)
	if st, ok := s.threads[rootID]; ok {
		st.FetchedPages = 0
		st.Expanded = false
	}
}

// InsertLocal places an optimistically-created comment (negative placeholder
// id) into the store. The comment is terminal as far as the store is
// concerned: no later reconciliation with a server-confirmed id is attempted.
func (s *Store) InsertLocal(c models.Comment, pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch pos.kind {
	case posPrependTopLevel:
		s.topLevel = append([]models.Comment{c}, s.topLevel...)
	case posAppendToThread:
		s.replies[pos.rootID] = append(s.replies[pos.rootID], c)
	case posAfterReply:
		seq := s.replies[pos.rootID]
		at := len(seq)
		for i := range seq {
			if seq[i].ID == pos.afterID {
				at = i + 1
				break
			}
		}
		seq = append(seq, models.Comment{})
		copy(seq[at+1:], seq[at:])
		seq[at] = c
		s.replies[pos.rootID] = seq
	}
}

// TopLevel returns the currently displayed top-level page.
func (s *Store) TopLevel() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comment, len(s.topLevel))
	copy(out, s.topLevel)
	return out
}

// Replies returns the fetched reply sequence for a root, in display order.
func (s *Store) Replies(rootID int64) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.replies[rootID]
	out := make([]models.Comment, len(seq))
	copy(out, seq)
	return out
}

// Thread returns the load state for a root, if it has one.
func (s *Store) Thread(rootID int64) (ThreadState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[rootID]
	if !ok {
		return ThreadState{}, false
	}
	return *st, true
}

// SetThreadState overwrites the load state for a root. Used when a
// locally-created reply gives a root its first thread slot before any fetch
// happened.
func (s *Store) SetThreadState(rootID int64, st ThreadState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := st
	s.threads[rootID] = &cp
}

func (s *Store) ensureThread(rootID int64) *ThreadState {
	st, ok := s.threads[rootID]
	if !ok {
		st = &ThreadState{}
		s.threads[rootID] = st
	}
	return st
}
