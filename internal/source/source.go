package source

import "time"

// Post is a single wall entry as returned by wall.get. Optional fields are
// nil when VK omitted them; a post without ID or Date is unusable.
type Post struct {
	ID       *int64     // post id within the owner's wall
	OwnerID  int64      // wall owner; negative for communities
	Date     *time.Time // publication timestamp, UTC
	IsPinned *bool      // pinned flag, absent on most posts
}

// Pinned reports whether the post carries a pinned flag set to true.
func (p Post) Pinned() bool {
	return p.IsPinned != nil && *p.IsPinned
}

// WallFilter selects which wall entries wall.get returns.
type WallFilter string

const (
	FilterAll WallFilter = "all"
)

// WallQuery describes a single wall.get page.
type WallQuery struct {
	Domain string // short address of the group, e.g. "apiclub"
	Count  int
	Offset int
	Filter WallFilter
}

// Comment is a wall.createComment request.
type Comment struct {
	OwnerID int64
	PostID  int64
	Message string
}

// Credentials for the direct password grant.
type Credentials struct {
	ApplicationID int64
	ClientSecret  string
	Login         string
	Password      string
	Scope         string
}
