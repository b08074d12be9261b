// Cache key derivation.
//
// Two key families cover every request:
//
//   - parameter keys: built from normalized RouteParameters, so semantically
//     identical trips ("Trip from Kyiv to Lviv" vs the same request phrased
//     in Ukrainian) collide deliberately and share one cache entry;
//   - prompt keys: built from the normalized raw prompt, the literal
//     fallback when extraction is unavailable.
//
// Both apply the same fixed-width 128-bit digest (MD5, hex-encoded) over the
// UTF-8 bytes of "<canonical>|<language>". This is a best-effort cache, not a
// correctness-critical structure; the digest favors speed over cryptographic
// strength.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/tripwise/insights-gateway/internal/domain"
)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// PromptKey derives the literal cache key for a raw prompt: lower-cased,
// trimmed, internal whitespace collapsed, suffixed with the language.
func PromptKey(prompt, lang string) string {
	normalized := whitespaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(prompt)), " ")
	return digest(normalized + "|" + lang)
}

// ParameterKey derives the semantic cache key for extracted trip parameters.
// Callers should only use it when params.Valid() holds; an invalid descriptor
// still hashes (cities become "unknown") but collides across unrelated
// incomplete requests.
func ParameterKey(params *domain.RouteParameters, lang string) string {
	return digest(params.CanonicalKey() + "|" + lang)
}

// NormalizeLanguage reduces a BCP 47 tag to its base language ("en-US" →
// "en", "uk" → "uk"). Unparseable or empty input defaults to English so that
// malformed tags cannot fragment the cache key space.
func NormalizeLanguage(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || tag == language.Und {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

func digest(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
