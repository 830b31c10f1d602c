package media

import (
	"errors"
	"fmt"
)

// ErrUnknownCollection is returned for a library kind this service does not know.
var ErrUnknownCollection = errors.New("unknown library collection")

// LibraryURL maps a named collection kind to its canonical playlist URL.
func LibraryURL(kind string) (string, error) {
	switch kind {
	case "liked":
		return "https://www.youtube.com/playlist?list=LL", nil
	case "watchlater":
		return "https://www.youtube.com/playlist?list=WL", nil
	case "playlists":
		return "https://www.youtube.com/feed/playlists", nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCollection, kind)
}
