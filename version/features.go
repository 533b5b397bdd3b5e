package version

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ansybl/ansybl-go/feed"
)

// ExtensionField is one underscore-prefixed key found anywhere in a document,
// annotated with its dotted path ("items[0]._geo").
type ExtensionField struct {
	Path string
	Key  string
}

// FeatureReport is the outcome of structural feature detection.
type FeatureReport struct {
	Version            Version
	VersionKnown       bool
	Features           []string
	ExtensionFields    []ExtensionField
	MissingFeatures    []string
	DeprecatedFeatures []string
}

// FeatureDetector infers which protocol features a document actually uses by
// inspecting its structure rather than trusting its declared version.
type FeatureDetector struct{}

func NewFeatureDetector() *FeatureDetector { return &FeatureDetector{} }

// DetectFeatures walks the document and reports used features, extension
// fields at every depth, features the declared version supports but the
// document never uses, and any deprecated features still in use.
func (d *FeatureDetector) DetectFeatures(doc *feed.Feed) FeatureReport {
	var rep FeatureReport
	if doc == nil {
		return rep
	}
	if v, err := Parse(doc.Version); err == nil {
		rep.Version = v
		rep.VersionKnown = true
	}

	used := map[string]bool{}
	if doc.Signature != "" {
		used[FeatureSignatures] = true
	}
	for _, it := range doc.Items {
		if it.Signature != "" {
			used[FeatureSignatures] = true
		}
		if len(it.Attachments) > 0 {
			used[FeatureAttachments] = true
		}
		if it.Interactions != nil {
			used[FeatureInteractions] = true
		}
		if it.InReplyTo != "" {
			used[FeatureReplyThreading] = true
		}
		if it.UUID != "" {
			used[FeatureItemUUID] = true
		}
	}
	rep.ExtensionFields = scanExtensions(doc.ToMap(), "")
	if len(rep.ExtensionFields) > 0 {
		used[FeatureExtensions] = true
	}

	for f := range used {
		rep.Features = append(rep.Features, f)
	}
	sort.Strings(rep.Features)

	if rep.VersionKnown {
		info := Lookup(rep.Version)
		for _, f := range info.SupportedFeatures {
			if !used[f] {
				rep.MissingFeatures = append(rep.MissingFeatures, f)
			}
		}
		for _, f := range info.DeprecatedFeatures {
			if used[f] {
				rep.DeprecatedFeatures = append(rep.DeprecatedFeatures, f)
			}
		}
	}
	return rep
}

// scanExtensions recursively collects underscore-prefixed keys, descending
// into nested objects and arrays. Values under an extension key are opaque
// and are not descended into.
func scanExtensions(v any, path string) []ExtensionField {
	var out []ExtensionField
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.HasPrefix(k, "_") {
				out = append(out, ExtensionField{Path: joinPath(path, k), Key: k})
				continue
			}
			out = append(out, scanExtensions(t[k], joinPath(path, k))...)
		}
	case []any:
		for i, e := range t {
			out = append(out, scanExtensions(e, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}
	return out
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// SuggestUpgrades recommends newer releases whose feature set would cover the
// document's detected usage, or unlock unused capability.
func (d *FeatureDetector) SuggestUpgrades(rep FeatureReport) []string {
	if !rep.VersionKnown {
		return nil
	}
	var out []string
	current := rep.Version.ShortString()
	for _, candidate := range KnownVersions() {
		cv := MustParse(candidate)
		if cv.Compare(rep.Version) <= 0 {
			continue
		}
		extra := diff(Lookup(cv).SupportedFeatures, Lookup(rep.Version).SupportedFeatures)
		if len(extra) > 0 {
			out = append(out, fmt.Sprintf("upgrade from %s to %s for: %s",
				current, candidate, strings.Join(extra, ", ")))
		}
	}
	return out
}

func diff(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidateAgainstVersion checks the document's structure against a target
// release: missing required fields are errors, deprecated features in use and
// features the target does not support are warnings.
func ValidateAgainstVersion(doc *feed.Feed, target Version) feed.Report {
	rep := feed.Report{Valid: true}
	info := Lookup(target)
	if len(info.SupportedFeatures) == 0 && len(info.RequiredFields) == 0 {
		rep.Warnings = append(rep.Warnings, feed.Issue{
			Code:     feed.CodeUnsupportedVersion,
			Message:  fmt.Sprintf("release %s is not in the compatibility matrix", target.ShortString()),
			Severity: feed.SeverityWarning,
			Category: feed.CategoryCompatibility,
			Value:    target.String(),
		})
		return rep
	}

	m := doc.ToMap()
	for _, field := range info.RequiredFields {
		if !hasDottedPath(m, field) {
			rep.Errors = append(rep.Errors, feed.Issue{
				Code:     feed.CodeMissingRequiredField,
				Message:  fmt.Sprintf("field %q is required by release %s", field, target.ShortString()),
				Severity: feed.SeverityError,
				Category: feed.CategoryCompatibility,
				Path:     field,
			})
		}
	}

	detected := NewFeatureDetector().DetectFeatures(doc)
	for _, f := range detected.Features {
		if f == FeatureExtensions {
			// Extension fields are ignorable by construction on every release.
			continue
		}
		if !contains(info.SupportedFeatures, f) {
			rep.Warnings = append(rep.Warnings, feed.Issue{
				Code:     feed.CodeUnsupportedVersion,
				Message:  fmt.Sprintf("feature %q is not supported by release %s", f, target.ShortString()),
				Severity: feed.SeverityWarning,
				Category: feed.CategoryCompatibility,
				Value:    f,
			})
		}
		if contains(info.DeprecatedFeatures, f) {
			rep.Warnings = append(rep.Warnings, feed.Issue{
				Code:     feed.CodeUnsupportedVersion,
				Message:  fmt.Sprintf("feature %q is deprecated as of release %s", f, target.ShortString()),
				Severity: feed.SeverityWarning,
				Category: feed.CategoryCompatibility,
				Value:    f,
			})
		}
	}
	rep.Valid = len(rep.Errors) == 0
	return rep
}

// hasDottedPath resolves "author.public_key"-style paths against a value
// tree. An empty string counts as absent, since the model always emits its
// required keys.
func hasDottedPath(m map[string]any, path string) bool {
	cur := any(m)
	parts := strings.Split(path, ".")
	for i, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		next, ok := obj[part]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			if s, isStr := next.(string); isStr && s == "" {
				return false
			}
			return true
		}
		cur = next
	}
	return true
}
