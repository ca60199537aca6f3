package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/provenly/signalguard/internal/model"
)

// Cache defines the interface for a TTL key-value store.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// trackingParams are query parameters stripped during URL normalization.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_id": true,
	"fbclid": true, "gclid": true, "msclkid": true,
	"mc_cid": true, "mc_eid": true, "ref": true, "ref_src": true,
}

// NormalizeURL canonicalizes a URL for cache keying: tracking parameters
// and fragments are dropped, scheme and host lowercased, trailing slash
// removed. Unparseable input falls back to trimmed lowercase.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	q := parsed.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	parsed.RawQuery = q.Encode()

	normalized := parsed.String()
	return strings.TrimSuffix(normalized, "/")
}

// URLKey generates the URL-cache key for a raw URL.
func URLKey(rawURL string) string {
	hash := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return "signalguard:v1:url:" + hex.EncodeToString(hash[:])
}

// NormalizeCompany lowercases and trims a company name for claim keying.
func NormalizeCompany(company string) string {
	return strings.Join(strings.Fields(strings.ToLower(company)), " ")
}

// HashClaim computes a stable hash over a claim's type, normalized
// statement, and sorted normalized entity map, so semantically identical
// claims collapse to one cache key regardless of extraction wording.
func HashClaim(c model.Claim) string {
	var b strings.Builder
	b.WriteString(string(c.Type))
	b.WriteByte('|')
	b.WriteString(normalizeText(c.Statement))

	keys := make([]string, 0, len(c.Entities))
	for k := range c.Entities {
		if c.Entities[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(k))
		b.WriteByte('=')
		b.WriteString(normalizeText(c.Entities[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// ClaimKey generates the claim-cache key for a company and claim.
func ClaimKey(company string, c model.Claim) string {
	return "signalguard:v1:claim:" + NormalizeCompany(company) + ":" + HashClaim(c)
}

// contentHashPrefix bounds the portion of text that participates in the
// near-duplicate content hash.
const contentHashPrefix = 500

// HashContent hashes the first 500 normalized characters of a text, so
// near-duplicates that diverge only in their tails still collide.
func HashContent(text string) string {
	normalized := normalizeText(text)
	if len(normalized) > contentHashPrefix {
		normalized = normalized[:contentHashPrefix]
	}
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
