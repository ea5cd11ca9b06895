package migrations

import (
	"feedwatch/internal/core"
)

// Migration001CreateRSSTables creates the feed and post tables
var Migration001CreateRSSTables = core.Migration{
	Version:     1,
	Name:        "create_rss_tables",
	Description: "Create feed and post tables",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS rss_feeds (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			request_url TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'idle',
			last_error_code TEXT,
			last_error_message TEXT,
			last_error_status INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- titles are unique within a feed
		CREATE TABLE IF NOT EXISTS rss_posts (
			id TEXT PRIMARY KEY,
			feed_id TEXT NOT NULL REFERENCES rss_feeds(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			link TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (feed_id, title)
		);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS rss_posts;
		DROP TABLE IF EXISTS rss_feeds;
	`,
}
