package models

// State is the root of the application state tree
type State struct {
	Feeds []Feed `json:"feeds"`
	Posts []Post `json:"posts"`
	Form  Form   `json:"form"`
}

// NewState returns an empty state tree
func NewState() State {
	return State{
		Feeds: []Feed{},
		Posts: []Post{},
		Form:  NewForm(),
	}
}

// Clone returns a deep copy of s
func (s State) Clone() State {
	return State{
		Feeds: CloneFeeds(s.Feeds),
		Posts: ClonePosts(s.Posts),
		Form:  s.Form.Clone(),
	}
}

// CloneFeeds copies a feed slice, never returning nil
func CloneFeeds(feeds []Feed) []Feed {
	out := make([]Feed, len(feeds))
	for i, feed := range feeds {
		out[i] = feed.Clone()
	}
	return out
}

// ClonePosts copies a post slice, never returning nil
func ClonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	return out
}
