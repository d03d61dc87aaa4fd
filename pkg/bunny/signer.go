// Package bunny mints Bunny Stream token-authenticated URLs.
//
// Two schemes are supported, both keyed by the pull zone / library security key:
//
//	CDN asset:  base64url(SHA256(key + urlPath + expires))   -> ?token=...&expires=...
//	Embed:      hex(SHA256(key + videoID + expires))          -> <embed>/<library>/<video>?token=...&expires=...
package bunny

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEmbedBaseURL is Bunny Stream's iframe player endpoint.
const DefaultEmbedBaseURL = "https://iframe.mediadelivery.net/embed"

// Config configures a Signer.
type Config struct {
	SigningKey   string
	EmbedBaseURL string
	MaxTTL       time.Duration // zero disables the cap
}

// Signer derives signed URLs. It holds no mutable state and performs no I/O.
type Signer struct {
	key       string
	embedBase string
	maxTTL    int64
	now       func() time.Time
}

// NewSigner creates a signer.
func NewSigner(cfg Config) *Signer {
	base := strings.TrimRight(cfg.EmbedBaseURL, "/")
	if base == "" {
		base = DefaultEmbedBaseURL
	}
	return &Signer{
		key:       cfg.SigningKey,
		embedBase: base,
		maxTTL:    int64(cfg.MaxTTL / time.Second),
		now:       time.Now,
	}
}

// WithClock returns a copy of the signer reading time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// ExpiresAt returns the unix expiry a URL signed now with ttlSeconds would carry.
func (s *Signer) ExpiresAt(ttlSeconds int64) int64 {
	return s.now().Unix() + s.clamp(ttlSeconds)
}

// SignCDNAsset appends a token and expiry to a pull zone URL (thumbnails, previews).
func (s *Signer) SignCDNAsset(rawURL string, ttlSeconds int64) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse cdn url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse cdn url: missing host in %q", rawURL)
	}
	expires := s.ExpiresAt(ttlSeconds)
	token := CDNToken(s.key, u.EscapedPath(), expires)
	return rawURL + "?token=" + token + "&expires=" + strconv.FormatInt(expires, 10), nil
}

// SignPlayback builds a signed embed URL from a resource path like /<libraryId>/<videoId>.mp4.
func (s *Signer) SignPlayback(resourcePath string, ttlSeconds int64) string {
	libraryID, videoID := SplitResourcePath(resourcePath)
	expires := s.ExpiresAt(ttlSeconds)
	token := PlaybackToken(s.key, videoID, expires)
	return fmt.Sprintf("%s/%s/%s?token=%s&expires=%d", s.embedBase, libraryID, videoID, token, expires)
}

func (s *Signer) clamp(ttl int64) int64 {
	if ttl < 0 {
		return 0
	}
	if s.maxTTL > 0 && ttl > s.maxTTL {
		return s.maxTTL
	}
	return ttl
}

// CDNToken computes the pull zone token: SHA256 digest in URL-safe base64 without padding.
func CDNToken(key, path string, expires int64) string {
	sum := sha256.Sum256([]byte(key + path + strconv.FormatInt(expires, 10)))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PlaybackToken computes the embed token: lowercase hex SHA256.
func PlaybackToken(key, videoID string, expires int64) string {
	sum := sha256.Sum256([]byte(key + videoID + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(sum[:])
}

// SplitResourcePath returns the library id and the video id (without .mp4) of a resource path.
// Missing segments come back empty.
func SplitResourcePath(resourcePath string) (libraryID, videoID string) {
	var parts []string
	for _, p := range strings.Split(resourcePath, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		libraryID = parts[0]
	}
	if len(parts) > 1 {
		videoID = strings.TrimSuffix(parts[1], ".mp4")
	}
	return libraryID, videoID
}
