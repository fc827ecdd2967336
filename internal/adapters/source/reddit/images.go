package reddit

import (
	"path"
	"regexp"
	"strings"

	"invitehound/internal/services/monitor/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// imageRefs pulls image URLs out of a comment body. Three heuristics:
// a known image extension anywhere in the URL, the reddit image hosts,
// and imgur direct links (albums excluded, bare links get .jpg appended
// so the OCR endpoint receives a fetchable image)
func imageRefs(body string) []domain.ImageRef {
	var refs []domain.ImageRef
	for _, u := range urlPattern.FindAllString(body, -1) {
		lower := strings.ToLower(u)
		switch {
		case hasImageExt(lower):
			refs = append(refs, ref(u))
		case strings.Contains(lower, "i.redd.it") || strings.Contains(lower, "preview.redd.it"):
			refs = append(refs, ref(u))
		case strings.Contains(lower, "imgur.com") && !strings.Contains(lower, "/a/"):
			if !strings.HasSuffix(lower, ".jpg") && !strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, ".gif") {
				u += ".jpg"
			}
			refs = append(refs, ref(u))
		}
	}
	return refs
}

func hasImageExt(lower string) bool {
	for _, ext := range imageExts {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

func ref(u string) domain.ImageRef {
	name := path.Base(u)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return domain.ImageRef{URL: u, Filename: name}
}
