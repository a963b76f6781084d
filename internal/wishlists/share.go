package wishlists

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/pkg/config"
)

// BuildShareLinks renders the two public URL surfaces for a wishlist: the
// direct form and the personalized form carrying the owner's display name.
func BuildShareLinks(cfg config.ShareConfig, ownerName string, wishlistID uuid.UUID) ShareLinks {
	origin := strings.TrimRight(cfg.Origin, "/")
	links := ShareLinks{
		Direct: fmt.Sprintf("%s/wishlist/%s", origin, wishlistID),
	}
	if slug := Slugify(ownerName); slug != "" {
		links.Personal = fmt.Sprintf("%s/presently/%s/%s", origin, slug, wishlistID)
	}
	return links
}

// Slugify lowercases the name and collapses anything outside [a-z0-9] into
// single hyphens. Names with no usable characters produce an empty slug and
// the personalized link is omitted.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
