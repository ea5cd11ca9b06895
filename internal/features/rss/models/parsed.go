package models

// ParsedFeed is the result of parsing a fetched feed document
type ParsedFeed struct {
	Title string       `json:"title"`
	Items []ParsedItem `json:"items"`
}

// ParsedItem is one entry of a parsed feed
type ParsedItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
