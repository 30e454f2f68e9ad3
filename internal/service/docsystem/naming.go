package docsystem

import (
	"context"
	"path"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"portal/internal/storage"
)

// fallbackSlug is used when a name has no ASCII alphanumerics at all.
const fallbackSlug = "untitled"

// ligatures maps lower-case letters that have no NFKD decomposition to ASCII.
var ligatures = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"ı", "i",
	"ħ", "h",
	"ŧ", "t",
	"ŋ", "n",
	"ĸ", "q",
)

// Slugify lower-cases name, folds accents to ASCII and collapses every run of
// other characters into a single "-". The result never starts or ends with "-"
// and Slugify(Slugify(x)) == Slugify(x).
func Slugify(name string) string {
	if s := slug(name); s != "" {
		return s
	}
	return fallbackSlug
}

// SlugifyFilename slugifies a document name while keeping its extension,
// e.g. "NDA Final.PDF" -> "nda-final.pdf".
func SlugifyFilename(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" || ext == "" {
		return Slugify(name)
	}

	extSlug := strings.ReplaceAll(slug(ext[1:]), "-", "")
	if extSlug == "" {
		return Slugify(stem)
	}
	return Slugify(stem) + "." + extSlug
}

func slug(name string) string {
	// Transformers carry state, so build a fresh chain per call.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range ligatures.Replace(strings.ToLower(folded)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ExistsFunc reports whether a storage path is already occupied.
type ExistsFunc func(ctx context.Context, p string) (bool, error)

// ResolveCollision returns basePath/slug, or the id-suffixed form when that is
// already taken. The suffixed form is not checked again: ids are unique, so two
// entities never compete for it.
func ResolveCollision(ctx context.Context, basePath, slug string, id int64, exists ExistsFunc) (string, error) {
	candidate := storage.Join(basePath, slug)
	taken, err := exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}
	return storage.Join(basePath, suffixSlug(slug, id)), nil
}

// suffixSlug appends -<id> before a filename extension if there is one.
func suffixSlug(slug string, id int64) string {
	suffix := "-" + strconv.FormatInt(id, 10)
	if ext := path.Ext(slug); ext != "" && ext != slug {
		return strings.TrimSuffix(slug, ext) + suffix + ext
	}
	return slug + suffix
}
