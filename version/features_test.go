package version

import (
	"strings"
	"testing"

	"github.com/ansybl/ansybl-go/feed"
)

func featureFixture() *feed.Feed {
	return &feed.Feed{
		Version:     "https://ansybl.org/version/1.0",
		Title:       "Detect",
		HomePageURL: "https://example.org",
		FeedURL:     "https://example.org/feed.ansybl",
		Author:      feed.Author{Name: "A", PublicKey: "ed25519:l5QFflPWHggLA9CL1ZSZSDMEGMglJf5GiWsRXBRE8jA="},
		Extensions:  feed.Extensions{"_analytics": map[string]any{"provider": "x"}},
		Items: []feed.Item{
			{
				ID:            "1",
				URL:           "https://example.org/1",
				ContentText:   "c",
				DatePublished: "2026-01-02T15:04:05Z",
				Signature:     "ed25519:c2ln",
				InReplyTo:     "https://other.example/posts/9",
				Attachments:   []feed.Attachment{{URL: "https://example.org/a.png", MimeType: "image/png"}},
				Extensions:    feed.Extensions{"_geo": map[string]any{"_lat": 1.0}},
			},
		},
	}
}

func TestDetectFeatures_Structural(t *testing.T) {
	rep := NewFeatureDetector().DetectFeatures(featureFixture())
	if !rep.VersionKnown || rep.Version.ShortString() != "1.0" {
		t.Fatalf("version not detected: %+v", rep)
	}
	for _, want := range []string{FeatureSignatures, FeatureAttachments, FeatureReplyThreading, FeatureExtensions} {
		if !contains(rep.Features, want) {
			t.Errorf("feature %q not detected: %v", want, rep.Features)
		}
	}
	if contains(rep.Features, FeatureInteractions) {
		t.Error("interactions detected without interaction data")
	}
	if !contains(rep.MissingFeatures, FeatureInteractions) {
		t.Errorf("interactions should be reported unused: %v", rep.MissingFeatures)
	}
}

func TestDetectFeatures_ExtensionPaths(t *testing.T) {
	rep := NewFeatureDetector().DetectFeatures(featureFixture())
	var paths []string
	for _, ef := range rep.ExtensionFields {
		paths = append(paths, ef.Path)
	}
	joined := strings.Join(paths, " ")
	if !strings.Contains(joined, "_analytics") {
		t.Errorf("feed-level extension missing: %v", paths)
	}
	if !strings.Contains(joined, "items[0]._geo") {
		t.Errorf("item-level extension path missing: %v", paths)
	}
	// Values under an extension key stay opaque.
	if strings.Contains(joined, "_lat") {
		t.Errorf("descended into opaque extension value: %v", paths)
	}
}

func TestDetectFeatures_NilAndUnversioned(t *testing.T) {
	if rep := NewFeatureDetector().DetectFeatures(nil); len(rep.Features) != 0 {
		t.Fatalf("nil document must yield empty report: %+v", rep)
	}
	f := featureFixture()
	f.Version = "not a version"
	rep := NewFeatureDetector().DetectFeatures(f)
	if rep.VersionKnown {
		t.Fatal("unparseable version must not be reported as known")
	}
	if len(rep.MissingFeatures) != 0 {
		t.Fatal("missing-feature analysis requires a known version")
	}
}

func TestSuggestUpgrades(t *testing.T) {
	f := featureFixture()
	f.Version = "https://ansybl.org/version/0.9"
	rep := NewFeatureDetector().DetectFeatures(f)
	suggestions := NewFeatureDetector().SuggestUpgrades(rep)
	if len(suggestions) == 0 {
		t.Fatal("0.9 document should get upgrade suggestions")
	}
	joined := strings.Join(suggestions, " ")
	if !strings.Contains(joined, FeatureInteractions) {
		t.Errorf("suggestions should name the unlocked features: %v", suggestions)
	}

	f.Version = "https://ansybl.org/version/1.1"
	latest := NewFeatureDetector().DetectFeatures(f)
	if got := NewFeatureDetector().SuggestUpgrades(latest); len(got) != 0 {
		t.Errorf("latest release should get no suggestions: %v", got)
	}
}

func TestValidateAgainstVersion(t *testing.T) {
	f := featureFixture()
	rep := ValidateAgainstVersion(f, MustParse("1.0"))
	if !rep.Valid {
		t.Fatalf("fixture must satisfy 1.0: %+v", rep.Errors)
	}

	bad := &feed.Feed{Version: "1.0"}
	rep = ValidateAgainstVersion(bad, MustParse("1.0"))
	if rep.Valid {
		t.Fatal("missing required fields must fail")
	}
	found := false
	for _, iss := range rep.Errors {
		if iss.Code == feed.CodeMissingRequiredField && iss.Path == "author.public_key" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dotted-path finding for author.public_key: %+v", rep.Errors)
	}
}

func TestValidateAgainstVersion_NewerFeatureOnOldTarget(t *testing.T) {
	f := featureFixture()
	f.Items[0].UUID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	rep := ValidateAgainstVersion(f, MustParse("1.0"))
	if !rep.Valid {
		t.Fatalf("unsupported feature is advisory: %+v", rep.Errors)
	}
	found := false
	for _, iss := range rep.Warnings {
		if iss.Code == feed.CodeUnsupportedVersion && iss.Value == FeatureItemUUID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected uuid-on-1.0 warning: %+v", rep.Warnings)
	}
}

func TestValidateAgainstVersion_UnknownTarget(t *testing.T) {
	rep := ValidateAgainstVersion(featureFixture(), MustParse("9.9"))
	if !rep.Valid || len(rep.Warnings) == 0 {
		t.Fatalf("unknown target must warn, not error: %+v", rep)
	}
}
