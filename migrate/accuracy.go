package migrate

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ansybl/ansybl-go/canonical"
	"github.com/ansybl/ansybl-go/feed"
	"github.com/ansybl/ansybl-go/version"
)

// AccuracyReport is the outcome of comparing a document before and after
// migration. DataPreserved is false only when core content was lost or
// altered; added fields are informational.
type AccuracyReport struct {
	TargetVersion string
	DataPreserved bool
	Issues        []feed.Issue
	Notes         []feed.Issue
}

// Validator checks that migrations preserve the document's substance.
type Validator struct {
	engine *Engine
}

func NewValidator() *Validator {
	return &Validator{engine: NewEngine()}
}

// coreFeedFields are the feed-level fields whose values must survive a
// migration unchanged.
var coreFeedFields = []string{"title", "home_page_url", "feed_url", "description"}

// coreItemFields map each current item field to the names it may have carried
// in older releases.
var coreItemFields = map[string][]string{
	"id":             {"id"},
	"url":            {"url"},
	"title":          {"title"},
	"content_text":   {"content_text"},
	"content_html":   {"content_html"},
	"date_published": {"date_published", "published"},
	"date_modified":  {"date_modified", "modified"},
}

// ValidateMigrationAccuracy compares source and migrated documents for a
// migration to target: a changed item count or an altered core field breaks
// preservation; fields the migration added are reported as notes.
func (v *Validator) ValidateMigrationAccuracy(source, migrated map[string]any, target version.Version) AccuracyReport {
	rep := AccuracyReport{TargetVersion: target.ShortString(), DataPreserved: true}

	for _, field := range coreFeedFields {
		src, inSrc := source[field]
		dst, inDst := migrated[field]
		if !inSrc {
			continue
		}
		if !inDst || !sameValue(src, dst) {
			rep.DataPreserved = false
			rep.Issues = append(rep.Issues, feed.Issue{
				Code:     feed.CodeMigrationDataLoss,
				Message:  fmt.Sprintf("feed field %q was altered by migration", field),
				Severity: feed.SeverityError,
				Category: feed.CategoryCompatibility,
				Path:     field,
			})
		}
	}

	srcItems, _ := source["items"].([]any)
	dstItems, _ := migrated["items"].([]any)
	if len(srcItems) != len(dstItems) {
		rep.DataPreserved = false
		rep.Issues = append(rep.Issues, feed.Issue{
			Code:     feed.CodeMigrationDataLoss,
			Message:  fmt.Sprintf("item count changed from %d to %d", len(srcItems), len(dstItems)),
			Severity: feed.SeverityError,
			Category: feed.CategoryCompatibility,
			Path:     "items",
		})
		return rep
	}

	for i := range srcItems {
		src, ok1 := srcItems[i].(map[string]any)
		dst, ok2 := dstItems[i].(map[string]any)
		if !ok1 || !ok2 {
			continue
		}
		for field, aliases := range coreItemFields {
			srcVal, inSrc := lookupAlias(src, aliases)
			dstVal, inDst := lookupAlias(dst, aliases)
			if !inSrc {
				continue
			}
			if !inDst || !sameValue(srcVal, dstVal) {
				rep.DataPreserved = false
				rep.Issues = append(rep.Issues, feed.Issue{
					Code:     feed.CodeMigrationDataLoss,
					Message:  fmt.Sprintf("item field %q was altered by migration", field),
					Severity: feed.SeverityError,
					Category: feed.CategoryCompatibility,
					Path:     fmt.Sprintf("items[%d].%s", i, field),
				})
			}
		}
		for _, added := range addedKeys(src, dst) {
			rep.Notes = append(rep.Notes, feed.Issue{
				Code:     feed.CodeMigrationFieldAdded,
				Message:  fmt.Sprintf("migration added item field %q", added),
				Severity: feed.SeverityInfo,
				Category: feed.CategoryCompatibility,
				Path:     fmt.Sprintf("items[%d].%s", i, added),
			})
		}
	}

	for _, added := range addedKeys(source, migrated) {
		rep.Notes = append(rep.Notes, feed.Issue{
			Code:     feed.CodeMigrationFieldAdded,
			Message:  fmt.Sprintf("migration added feed field %q", added),
			Severity: feed.SeverityInfo,
			Category: feed.CategoryCompatibility,
			Path:     added,
		})
	}
	return rep
}

// TestRoundTrip migrates doc to via and back, then reports whether every
// field other than the version marker survived both legs.
func (v *Validator) TestRoundTrip(doc map[string]any, via version.Version) (bool, AccuracyReport, error) {
	raw, _ := doc["version"].(string)
	origin, err := version.Parse(raw)
	if err != nil {
		return false, AccuracyReport{}, fmt.Errorf("migrate: round trip needs a parseable source version: %w", err)
	}

	there := v.engine.Migrate(doc, via, Options{PreserveExtensions: true})
	if !there.Success {
		return false, AccuracyReport{Issues: there.Issues}, nil
	}
	back := v.engine.Migrate(there.Document, origin, Options{PreserveExtensions: true})
	if !back.Success {
		return false, AccuracyReport{Issues: back.Issues}, nil
	}

	rep := v.ValidateMigrationAccuracy(doc, back.Document, origin)
	equal, err := equalIgnoringVersion(doc, back.Document)
	if err != nil {
		return false, rep, err
	}
	return equal && rep.DataPreserved, rep, nil
}

// equalIgnoringVersion compares canonical bytes with the version marker
// removed from both sides.
func equalIgnoringVersion(a, b map[string]any) (bool, error) {
	ca := copyMap(a)
	cb := copyMap(b)
	delete(ca, "version")
	delete(cb, "version")
	ba, err := canonical.Serialize(ca)
	if err != nil {
		return false, err
	}
	bb, err := canonical.Serialize(cb)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ba, bb), nil
}

func lookupAlias(m map[string]any, aliases []string) (any, bool) {
	for _, name := range aliases {
		if v, ok := m[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// sameValue compares two values through canonical serialization, so numeric
// representations and key order never cause false mismatches.
func sameValue(a, b any) bool {
	ba, err1 := canonical.Serialize(a)
	bb, err2 := canonical.Serialize(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ba, bb)
}

// addedKeys lists non-extension keys present in dst but absent from src under
// every known alias.
func addedKeys(src, dst map[string]any) []string {
	aliasOf := map[string]string{"published": "date_published", "modified": "date_modified",
		"date_published": "published", "date_modified": "modified"}
	var out []string
	for k := range dst {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if _, ok := src[k]; ok {
			continue
		}
		if alias, has := aliasOf[k]; has {
			if _, ok := src[alias]; ok {
				continue
			}
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
