package version

import "fmt"

// Feature names used by the compatibility matrix and the detector.
const (
	FeatureSignatures     = "signatures"
	FeatureAttachments    = "attachments"
	FeatureInteractions   = "interactions"
	FeatureReplyThreading = "reply_threading"
	FeatureItemUUID       = "item_uuid"
	FeatureExtensions     = "extensions"
)

// Info describes what one protocol release supports. Keys into the matrix are
// the normalized "major.minor" form.
type Info struct {
	SupportedFeatures  []string
	DeprecatedFeatures []string
	RequiredFields     []string
	// BackwardCompatibleWith and ForwardCompatibleWith list the releases this
	// one can read and be read by, again in "major.minor" form.
	BackwardCompatibleWith []string
	ForwardCompatibleWith  []string
}

var matrix = map[string]Info{
	"0.9": {
		SupportedFeatures: []string{FeatureSignatures, FeatureAttachments, FeatureExtensions},
		RequiredFields: []string{
			"version", "title", "home_page_url", "feed_url",
			"author.name", "author.public_key", "items",
		},
		ForwardCompatibleWith: []string{"1.0", "1.1"},
	},
	"1.0": {
		SupportedFeatures: []string{
			FeatureSignatures, FeatureAttachments, FeatureExtensions,
			FeatureInteractions, FeatureReplyThreading,
		},
		RequiredFields: []string{
			"version", "title", "home_page_url", "feed_url",
			"author.name", "author.public_key", "items",
		},
		BackwardCompatibleWith: []string{"0.9"},
		ForwardCompatibleWith:  []string{"1.1"},
	},
	"1.1": {
		SupportedFeatures: []string{
			FeatureSignatures, FeatureAttachments, FeatureExtensions,
			FeatureInteractions, FeatureReplyThreading, FeatureItemUUID,
		},
		RequiredFields: []string{
			"version", "title", "home_page_url", "feed_url",
			"author.name", "author.public_key", "items",
		},
		BackwardCompatibleWith: []string{"1.0", "0.9"},
	},
}

// Lookup returns the release info for v's "major.minor". Unknown releases get
// the zero Info; callers see empty collections, never an error.
func Lookup(v Version) Info {
	return matrix[v.ShortString()]
}

// KnownVersions lists the releases the matrix covers.
func KnownVersions() []string {
	return []string{"0.9", "1.0", "1.1"}
}

// Relation classifies how two versions relate.
type Relation string

const (
	RelationSame         Relation = "same"
	RelationBackward     Relation = "backward_compatible"
	RelationForward      Relation = "forward_compatible"
	RelationIncompatible Relation = "incompatible"
)

// CompatibilityResult carries the classification, a human-readable reason, and
// remediation hints for the incompatible case.
type CompatibilityResult struct {
	Relation Relation
	Reason   string
	Hints    []string
}

// CheckCompatibility classifies reader against document: Same when the
// releases match, Backward when the reader is the newer of a compatible pair,
// Forward when it is the older, Incompatible otherwise.
func CheckCompatibility(reader, document Version) CompatibilityResult {
	rk, dk := reader.ShortString(), document.ShortString()
	if rk == dk {
		return CompatibilityResult{
			Relation: RelationSame,
			Reason:   fmt.Sprintf("both sides speak %s", rk),
		}
	}
	if contains(Lookup(reader).BackwardCompatibleWith, dk) {
		return CompatibilityResult{
			Relation: RelationBackward,
			Reason:   fmt.Sprintf("%s readers accept %s documents", rk, dk),
		}
	}
	if contains(Lookup(reader).ForwardCompatibleWith, dk) {
		return CompatibilityResult{
			Relation: RelationForward,
			Reason:   fmt.Sprintf("%s documents remain readable to %s consumers; newer fields are ignored", rk, dk),
		}
	}
	if reader.IsCompatibleWith(document) {
		// Same major but outside the matrix: minor revisions within a major
		// are wire compatible by protocol rule.
		rel := RelationBackward
		if reader.Compare(document) < 0 {
			rel = RelationForward
		}
		return CompatibilityResult{
			Relation: rel,
			Reason:   fmt.Sprintf("%s and %s share a major version", rk, dk),
		}
	}
	return CompatibilityResult{
		Relation: RelationIncompatible,
		Reason:   fmt.Sprintf("no compatibility path between %s and %s", rk, dk),
		Hints: []string{
			fmt.Sprintf("migrate the document from %s to %s before parsing", dk, rk),
			"check for a newer reader release that supports the document's major version",
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
