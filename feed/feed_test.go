package feed

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"
)

// Shared fixtures for the feed package tests.

func testKeyPair(t *testing.T, seedByte byte) (priv, pub string) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	key := ed25519.NewKeyFromSeed(seed)
	priv = "ed25519:" + base64.StdEncoding.EncodeToString(seed)
	pub = "ed25519:" + base64.StdEncoding.EncodeToString(key.Public().(ed25519.PublicKey))
	return priv, pub
}

func validFeed(t *testing.T) (*Feed, string) {
	t.Helper()
	priv, pub := testKeyPair(t, 0x42)
	f := &Feed{
		Version:     "https://ansybl.org/version/1.0",
		Title:       "Test Feed",
		HomePageURL: "https://example.org",
		FeedURL:     "https://example.org/feed.ansybl",
		Author: Author{
			Name:      "Alice",
			PublicKey: pub,
		},
		Items: []Item{
			{
				ID:            "item-1",
				URL:           "https://example.org/posts/1",
				ContentText:   "Hello, world.",
				DatePublished: "2026-01-02T15:04:05Z",
				Tags:          []string{"intro", "meta"},
			},
		},
	}
	for i := range f.Items {
		if err := SignItem(&f.Items[i], priv); err != nil {
			t.Fatalf("SignItem: %v", err)
		}
	}
	if err := SignFeed(f, priv, time.Date(2026, 1, 2, 16, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SignFeed: %v", err)
	}
	return f, priv
}

func mustMarshal(t *testing.T, f *Feed) []byte {
	t.Helper()
	data, err := Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}
