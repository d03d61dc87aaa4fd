package bunny

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "test-signing-key"
	testVideoID = "1a31ba94-0843-44a8-9a6e-245878061b68"
)

// 1700000000 is 2023-11-14T22:13:20Z.
var testNow = time.Unix(1700000000, 0)

func newTestSigner() *Signer {
	return NewSigner(Config{SigningKey: testKey, MaxTTL: time.Hour}).WithClock(func() time.Time { return testNow })
}

func TestCDNTokenVector(t *testing.T) {
	got := CDNToken(testKey, "/454374/"+testVideoID+"/thumbnail.jpg", 1700003600)
	assert.Equal(t, "BPgzm6iYhiZ5Xccmxu0B5nbY__ZwgBYUtZDndZdqzDA", got)
}

func TestPlaybackTokenVector(t *testing.T) {
	assert.Equal(t, "d0442b3111fc0be5bb90a395c0a9085d1e145f7d424da44ed74deea250c26a82",
		PlaybackToken(testKey, testVideoID, 1700003600))
	assert.Equal(t, "c6a9c37080b00e55ea5ec943d57f8903a81c7af12898c60bf2a243c1bd1378e9",
		PlaybackToken(testKey, testVideoID, 1700000600))
}

func TestSignCDNAsset(t *testing.T) {
	s := newTestSigner()
	raw := "https://vz-example.b-cdn.net/454374/" + testVideoID + "/thumbnail.jpg"

	got, err := s.SignCDNAsset(raw, 3600)
	require.NoError(t, err)
	assert.Equal(t, raw+"?token=BPgzm6iYhiZ5Xccmxu0B5nbY__ZwgBYUtZDndZdqzDA&expires=1700003600", got)

	again, err := s.SignCDNAsset(raw, 3600)
	require.NoError(t, err)
	assert.Equal(t, got, again, "same second, same inputs must give the same URL")
}

func TestSignCDNAssetRejectsRelativeURL(t *testing.T) {
	_, err := newTestSigner().SignCDNAsset("/just/a/path.jpg", 60)
	require.Error(t, err)
}

func TestSignPlayback(t *testing.T) {
	s := newTestSigner()

	got := s.SignPlayback("/454374/"+testVideoID+".mp4", 600)
	assert.Equal(t, "https://iframe.mediadelivery.net/embed/454374/"+testVideoID+
		"?token=c6a9c37080b00e55ea5ec943d57f8903a81c7af12898c60bf2a243c1bd1378e9&expires=1700000600", got)
}

func TestSignPlaybackCapsTTL(t *testing.T) {
	s := newTestSigner()

	got := s.SignPlayback("454374/"+testVideoID, 48*3600)
	assert.Contains(t, got, "&expires=1700003600")
	assert.Contains(t, got, "token=d0442b3111fc0be5bb90a395c0a9085d1e145f7d424da44ed74deea250c26a82")
}

func TestExpiresAtClampsNegative(t *testing.T) {
	assert.Equal(t, testNow.Unix(), newTestSigner().ExpiresAt(-30))
}

func TestSplitResourcePath(t *testing.T) {
	tests := []struct {
		in         string
		lib, video string
	}{
		{"/454374/abc.mp4", "454374", "abc"},
		{"454374/abc", "454374", "abc"},
		{"//454374//abc.mp4/extra", "454374", "abc"},
		{"/454374", "454374", ""},
		{"", "", ""},
		{"/1/abc.mp4.mp4", "1", "abc.mp4"},
	}
	for _, tt := range tests {
		lib, video := SplitResourcePath(tt.in)
		assert.Equal(t, tt.lib, lib, tt.in)
		assert.Equal(t, tt.video, video, tt.in)
	}
}

func TestCustomEmbedBase(t *testing.T) {
	s := NewSigner(Config{SigningKey: testKey, EmbedBaseURL: "https://player.example.com/embed/"}).
		WithClock(func() time.Time { return testNow })
	got := s.SignPlayback("/1/v.mp4", 10)
	assert.Contains(t, got, "https://player.example.com/embed/1/v?token=")
}
