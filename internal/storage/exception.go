package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// ExceptionFeed builds a one-item feed describing a failed run, so feed
// readers surface the failure instead of silently showing stale content.
func ExceptionFeed(runErr error, args []string, startURLs []string, now time.Time) *types.Feed {
	now = now.UTC()
	link := "https://github.com/IshaanNene/linkfeed"
	if len(startURLs) > 0 {
		link = startURLs[0]
	}

	cmdline := strings.Join(args, " ")
	title := fmt.Sprintf("linkfeed failed: %v", runErr)

	item := types.NewFeedItem(fmt.Sprintf("%s#linkfeed-error-%d", link, now.Unix()))
	item.Link = link
	item.Title = title
	item.Description = fmt.Sprintf("Error: %v\n\nCommand line: %s", runErr, cmdline)
	item.SetPublished(now)

	return &types.Feed{
		Title:         title,
		Link:          link,
		Description:   "linkfeed could not build this feed: " + cmdline,
		LastBuildDate: now,
		Items:         []*types.FeedItem{item},
	}
}
