package services

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"feedwatch/internal/features/rss/models"
)

// Parser turns a raw feed document into a title and items
type Parser interface {
	Parse(raw string) (*models.ParsedFeed, error)
}

// ParseError reports a payload that is not a feed
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unsupported feed format: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FeedParser parses RSS, Atom and JSON feeds
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a parser
func NewFeedParser() *FeedParser {
	return &FeedParser{parser: gofeed.NewParser()}
}

// Parse extracts the feed title and the title and link of each item
func (p *FeedParser) Parse(raw string) (*models.ParsedFeed, error) {
	feed, err := p.parser.ParseString(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	parsed := &models.ParsedFeed{
		Title: strings.TrimSpace(feed.Title),
		Items: make([]models.ParsedItem, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Items = append(parsed.Items, models.ParsedItem{
			Title: strings.TrimSpace(item.Title),
			Link:  strings.TrimSpace(item.Link),
		})
	}

	return parsed, nil
}
