package usecase

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

// slugify turns an arbitrary page title into a filesystem-safe ASCII
// slug: NFKD decomposition, strip everything outside
// alphanumeric/space/hyphen, collapse whitespace runs into single
// hyphens, lowercase, cap at 80 characters. Titles that sanitize to
// nothing become "page".
func slugify(title string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(title) {
		if r > unicode.MaxASCII {
			continue
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		slug = "page"
	}
	return slug
}

// ContentFileName names the virtual text file for one crawled page.
// The zero-padded index keeps upload order visible and filenames unique
// even when titles collide.
func ContentFileName(index int, title string) string {
	return fmt.Sprintf("%03d_%s.txt", index, slugify(title))
}
