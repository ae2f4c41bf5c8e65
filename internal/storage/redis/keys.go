package redis

import (
	"github.com/mcoot/callclock/internal/model"
)

// captionSetKey returns the key holding a page's caption set
func (s *Storage) captionSetKey(page model.Page) string {
	return s.prefix + ":captions:" + string(page)
}

// pagesIndexKey returns the key of the SET of pages with captions
func (s *Storage) pagesIndexKey() string {
	return s.prefix + ":idx:pages"
}
