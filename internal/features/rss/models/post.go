package models

// Post represents one item of a feed. Posts are never mutated once created.
type Post struct {
	ID     string `json:"id"`
	FeedID string `json:"feedId"`
	Title  string `json:"title"`
	Link   string `json:"link"`
}

// PostKey is the content identity of a post: titles are unique per feed
type PostKey struct {
	FeedID string
	Title  string
}

// Key returns the content identity of p
func (p Post) Key() PostKey {
	return PostKey{FeedID: p.FeedID, Title: p.Title}
}
