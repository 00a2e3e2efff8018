package thread

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"video-comments/internal/comments"
	"video-comments/internal/models"
)

// Identity is the locally-known user stamped onto optimistic comments.
type Identity struct {
	UserID    int64
	UserName  string
	AvatarURL string
}

// IdentitySource supplies the current session identity.
type IdentitySource interface {
	Current() (Identity, bool)
}

// Notifier shows a blocking user-facing error dialog. Read failures never go
// through it; only rejected or failed submissions do.
type Notifier interface {
	ShowError(message string)
}

// Affordance is the single control a thread offers, derived purely from its
// load state.
type Affordance int

const (
	// AffordanceNone: the root has no replies, nothing to offer.
	AffordanceNone Affordance = iota
	// AffordanceExpand: collapsed thread with replies to show.
	AffordanceExpand
	// AffordanceLoadMore: expanded, more reply pages remain.
	AffordanceLoadMore
	// AffordanceCollapse: expanded and fully loaded.
	AffordanceCollapse
)

// ReplyTarget describes what a posted comment replies to. RootID is always
// the top-level ancestor; replies never nest deeper than one level, so
// replying to a reply still files under the same root, with the replied
// user's name carried for display and the insert placed right after it.
type ReplyTarget struct {
	RootID          int64
	RepliedUserID   int64
	RepliedUserName string
	// AfterCommentID is the reply being responded to, zero when the target
	// is the root itself.
	AfterCommentID int64
}

// Controller translates user actions on one video's comment section into
// store mutations and server calls. Loads are guarded so at most one fetch
// is in flight per thread and one for the top-level list; posts insert
// locally first and fire the server call without waiting on it.
type Controller struct {
	videoID  int64
	api      CommentAPI
	store    *comments.Store
	gate     *comments.PaginationGate
	ids      comments.PlaceholderAllocator
	identity IdentitySource
	notify   Notifier
	now      func() time.Time

	mu            sync.Mutex
	topLoading    bool
	threadLoading map[int64]bool
	posts         sync.WaitGroup
}

// NewController builds a controller for one video. The allocator is injected
// so tests can observe or script placeholder ids.
func NewController(videoID int64, api CommentAPI, ids comments.PlaceholderAllocator, identity IdentitySource, notify Notifier) *Controller {
	return &Controller{
		videoID:       videoID,
		api:           api,
		store:         comments.NewStore(),
		gate:          comments.NewPaginationGate(),
		ids:           ids,
		identity:      identity,
		notify:        notify,
		now:           time.Now,
		threadLoading: make(map[int64]bool),
	}
}

// Store exposes the comment state for the render layer.
func (tc *Controller) Store() *comments.Store {
	return tc.store
}

// CurrentPage returns the top-level page the controller is on.
func (tc *Controller) CurrentPage() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.gate.CurrentPage()
}

// IsLastPage reports whether the top-level list is known to be exhausted.
func (tc *Controller) IsLastPage() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.gate.IsLastPage()
}

// LoadPage fetches the current top-level page and swaps it in. A fetch
// failure leaves the prior page displayed; re-issuing the action is the
// recovery path. An empty result only marks the list exhausted, it does not
// clear what is shown. Ignored while a top-level load is already in flight.
func (tc *Controller) LoadPage(ctx context.Context) {
	tc.mu.Lock()
	if tc.topLoading {
		tc.mu.Unlock()
		return
	}
	tc.topLoading = true
	page := tc.gate.CurrentPage()
	tc.mu.Unlock()

	items, err := tc.api.FetchComments(ctx, tc.videoID, nil, page)

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.topLoading = false

	if err != nil {
		log.Println("thread: load comments failed:", err)
		return
	}
	if len(items) == 0 {
		tc.gate.RecordPageResult(0, comments.TopPageSize)
		return
	}
	tc.store.ReplaceTopLevel(items)
	tc.gate.RecordPageResult(len(items), comments.TopPageSize)
}

// NextPage advances to the next top-level page and loads it. Returns false
// without a fetch when the current page is known to be the last.
func (tc *Controller) NextPage(ctx context.Context) bool {
	tc.mu.Lock()
	ok := tc.gate.Advance()
	tc.mu.Unlock()
	if !ok {
		return false
	}
	tc.LoadPage(ctx)
	return true
}

// PrevPage retreats one top-level page and loads it. Returns false on page 1.
func (tc *Controller) PrevPage(ctx context.Context) bool {
	tc.mu.Lock()
	ok := tc.gate.Retreat()
	tc.mu.Unlock()
	if !ok {
		return false
	}
	tc.LoadPage(ctx)
	return true
}

// ExpandThread fetches the next reply page for a root and appends it. A
// second request while one is in flight is ignored, not queued; a fully
// loaded thread offers collapse instead, so expansion is a no-op there too.
func (tc *Controller) ExpandThread(ctx context.Context, rootID int64) {
	// The load state is snapshotted under the guard so a request racing a
	// just-finished load sees the fresh page count instead of re-fetching it.
	tc.mu.Lock()
	if tc.threadLoading[rootID] {
		tc.mu.Unlock()
		return
	}
	st, ok := tc.store.Thread(rootID)
	if !ok || (st.Expanded && st.FullyLoaded()) {
		tc.mu.Unlock()
		return
	}
	tc.threadLoading[rootID] = true
	tc.mu.Unlock()

	page := st.FetchedPages + 1
	items, err := tc.api.FetchComments(ctx, tc.videoID, &rootID, page)

	tc.mu.Lock()
	delete(tc.threadLoading, rootID)
	tc.mu.Unlock()

	if err != nil {
		log.Println("thread: load replies failed:", err)
		return
	}
	tc.store.AppendReplies(rootID, items)
}

// CollapseThread discards a thread's fetched replies; the next expand
// re-fetches from page 1.
func (tc *Controller) CollapseThread(rootID int64) {
	tc.store.CollapseReplies(rootID)
}

// ThreadAffordance derives which control a thread currently offers.
func (tc *Controller) ThreadAffordance(rootID int64) Affordance {
	st, ok := tc.store.Thread(rootID)
	if !ok || st.TotalReplies == 0 {
		return AffordanceNone
	}
	switch {
	case !st.Expanded:
		return AffordanceExpand
	case st.FullyLoaded():
		return AffordanceCollapse
	default:
		return AffordanceLoadMore
	}
}

// ThreadLabel renders the affordance as the user-visible control text.
func (tc *Controller) ThreadLabel(rootID int64) string {
	switch tc.ThreadAffordance(rootID) {
	case AffordanceExpand:
		st, _ := tc.store.Thread(rootID)
		return fmt.Sprintf("expand %d replies", st.TotalReplies)
	case AffordanceLoadMore:
		return "load more replies"
	case AffordanceCollapse:
		return "collapse"
	default:
		return ""
	}
}

// Post creates a comment optimistically: the comment is stamped with a
// negative placeholder id, the session identity and the current wall-clock
// time, inserted into the store synchronously, and only then submitted to
// the server in the background. A rejected or failed submission surfaces an
// error dialog but the local insertion stays; the placeholder comment is the
// terminal local representation either way. An empty body is silently
// ignored. Returns the inserted comment, or nil when nothing was inserted.
func (tc *Controller) Post(ctx context.Context, body string, target *ReplyTarget) *models.Comment {
	if body == "" {
		return nil
	}
	who, ok := tc.identity.Current()
	if !ok {
		log.Println("thread: post skipped, no session identity")
		return nil
	}

	comment := models.Comment{
		ID:        tc.ids.Next(),
		VideoID:   tc.videoID,
		UserID:    who.UserID,
		UserName:  who.UserName,
		AvatarURL: who.AvatarURL,
		Content:   body,
		CreatedAt: tc.now().Format("2006-01-02 15:04:05"),
	}

	pos := comments.PrependTopLevel()
	if target != nil {
		rootID := target.RootID
		comment.ParentID = &rootID
		comment.RepliedID = target.RepliedUserID
		comment.RepliedName = target.RepliedUserName
		if target.AfterCommentID != 0 {
			pos = comments.AfterReply(rootID, target.AfterCommentID)
		} else {
			pos = comments.AppendToThread(rootID)
		}
	}
	tc.store.InsertLocal(comment, pos)

	// A first reply gives its root a thread slot, so the thread reads as
	// expanded and fully loaded with the one local reply.
	if comment.IsReply() {
		rid := comment.RootID()
		if _, ok := tc.store.Thread(rid); !ok {
			tc.store.SetThreadState(rid, comments.ThreadState{
				FetchedPages: 1,
				TotalReplies: 1,
				Expanded:     true,
			})
		}
	}

	// Exactly one network call, fired without blocking the insertion. The
	// submission outlives the caller's context; cancelling after Post returns
	// must not abort it.
	tc.posts.Add(1)
	go func() {
		defer tc.posts.Done()
		if err := tc.api.SubmitComment(context.WithoutCancel(ctx), comment); err != nil {
			tc.notify.ShowError(err.Error())
		}
	}()

	return &comment
}

// Wait blocks until all in-flight submissions have completed.
func (tc *Controller) Wait() {
	tc.posts.Wait()
}
