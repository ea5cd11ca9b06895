package migrations

import (
	"feedwatch/internal/core"
)

// Migration002AddPostIndexes speeds up per-feed post lookups
var Migration002AddPostIndexes = core.Migration{
	Version:     2,
	Name:        "add_post_indexes",
	Description: "Index posts by feed and feeds by status",
	UpSQL: `
		CREATE INDEX IF NOT EXISTS idx_rss_posts_feed_id ON rss_posts(feed_id);
		CREATE INDEX IF NOT EXISTS idx_rss_feeds_status ON rss_feeds(status);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_rss_feeds_status;
		DROP INDEX IF EXISTS idx_rss_posts_feed_id;
	`,
}
