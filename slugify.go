package downblog

import (
	"strings"

	"github.com/gosimple/slug"
)

// Slugify returns the URL-friendly form of a post title. A title that slugifies
// to nothing (e.g. only punctuation) yields "post".
func Slugify(title string) string {
	s := slug.Make(strings.TrimSpace(title))
	if s == "" {
		return "post"
	}
	return s
}
