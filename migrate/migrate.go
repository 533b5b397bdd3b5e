// Package migrate moves Ansybl documents between protocol releases along an
// ordered transformation table, with dry-run planning, result validation, and
// migration-accuracy checks.
package migrate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ansybl/ansybl-go/feed"
	"github.com/ansybl/ansybl-go/version"
)

// Step is one directed transformation between adjacent releases. From and To
// are normalized "major.minor" keys.
type Step struct {
	From        string
	To          string
	Name        string
	Description string
	Apply       func(doc map[string]any)
}

// Record is the audit entry for one applied step.
type Record struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Options control a single migration call.
type Options struct {
	// DryRun computes the plan and a preview document without treating the
	// result as a committed migration. The input is never mutated either way.
	DryRun bool
	// ValidateResult runs structural validation on the migrated document and
	// attaches the report.
	ValidateResult bool
	// PreserveExtensions carries underscore-prefixed fields through; when
	// false they are dropped from the output.
	PreserveExtensions bool
}

// Result is the migration outcome. Document is nil on failure; a migration
// never returns a partially transformed document.
type Result struct {
	Success                bool
	Document               map[string]any
	SourceVersion          string
	TargetVersion          string
	AppliedTransformations []Record
	Issues                 []feed.Issue
	Validation             *feed.Report
	DryRun                 bool
}

// Engine resolves migration paths over its step table and applies them.
type Engine struct {
	steps  []Step
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine with the standard release-to-release steps.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{steps: standardSteps(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func standardSteps() []Step {
	return []Step{
		{
			From:        "0.9",
			To:          "1.0",
			Name:        "rename-item-dates",
			Description: "rename item fields published/modified to date_published/date_modified",
			Apply: func(doc map[string]any) {
				eachItem(doc, func(item map[string]any) {
					renameKey(item, "published", "date_published")
					renameKey(item, "modified", "date_modified")
				})
			},
		},
		{
			From:        "1.0",
			To:          "1.1",
			Name:        "enable-item-uuids",
			Description: "adopt the 1.1 schema; item uuids become available but are never synthesized",
			Apply:       func(doc map[string]any) {},
		},
		{
			From:        "1.1",
			To:          "1.0",
			Name:        "strip-item-uuids",
			Description: "remove item uuid fields, which 1.0 consumers do not recognize",
			Apply: func(doc map[string]any) {
				eachItem(doc, func(item map[string]any) {
					delete(item, "uuid")
				})
			},
		},
		{
			From:        "1.0",
			To:          "0.9",
			Name:        "restore-legacy-dates",
			Description: "rename item date fields back to their 0.9 names and drop 1.0-only structures",
			Apply: func(doc map[string]any) {
				eachItem(doc, func(item map[string]any) {
					renameKey(item, "date_published", "published")
					renameKey(item, "date_modified", "modified")
					delete(item, "interactions")
					delete(item, "in_reply_to")
				})
			},
		},
	}
}

// Migrate transforms doc to the target release. The input map is never
// mutated; all work happens on a deep copy.
func (e *Engine) Migrate(doc map[string]any, target version.Version, opts Options) Result {
	res := Result{TargetVersion: target.ShortString(), DryRun: opts.DryRun}

	raw, _ := doc["version"].(string)
	source, err := version.Parse(raw)
	if err != nil {
		res.Issues = append(res.Issues, feed.Issue{
			Code:     feed.CodeUnsupportedVersion,
			Message:  fmt.Sprintf("document version %q is not recognized", raw),
			Severity: feed.SeverityError,
			Category: feed.CategoryCompatibility,
			Path:     "version",
			Value:    raw,
		})
		return res
	}
	res.SourceVersion = source.ShortString()

	out := copyMap(doc)
	if !opts.PreserveExtensions {
		stripExtensions(out)
	}

	if source.ShortString() == target.ShortString() {
		res.Success = true
		res.Document = out
		return res
	}

	path := e.findPath(source.ShortString(), target.ShortString())
	if path == nil {
		res.Issues = append(res.Issues, feed.Issue{
			Code:     feed.CodeMigrationPathMissing,
			Message:  fmt.Sprintf("no migration path from %s to %s", res.SourceVersion, res.TargetVersion),
			Severity: feed.SeverityError,
			Category: feed.CategoryCompatibility,
			Path:     "version",
			Suggestions: []string{
				"migrate through an intermediate release if one exists",
				"check that both releases appear in the transformation table",
			},
		})
		return res
	}

	for _, step := range path {
		step.Apply(out)
		rewriteVersion(out, step.To)
		res.AppliedTransformations = append(res.AppliedTransformations, Record{
			From: step.From, To: step.To, Name: step.Name, Description: step.Description,
		})
		e.logger.Info("applied migration step",
			zap.String("from", step.From),
			zap.String("to", step.To),
			zap.String("step", step.Name),
			zap.Bool("dry_run", opts.DryRun))
	}

	res.Success = true
	res.Document = out
	if opts.ValidateResult {
		rep := feed.Validate(out)
		res.Validation = &rep
		if !rep.Valid {
			res.Issues = append(res.Issues, rep.Errors...)
		}
	}
	return res
}

// findPath runs a breadth-first search over the step graph and returns the
// step sequence, or nil when the releases are unconnected.
func (e *Engine) findPath(from, to string) []Step {
	type node struct {
		at   string
		path []Step
	}
	seen := map[string]bool{from: true}
	queue := []node{{at: from}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, step := range e.steps {
			if step.From != cur.at || seen[step.To] {
				continue
			}
			next := append(append([]Step(nil), cur.path...), step)
			if step.To == to {
				return next
			}
			seen[step.To] = true
			queue = append(queue, node{at: step.To, path: next})
		}
	}
	return nil
}

// rewriteVersion updates the version field in place, keeping the document's
// surface syntax: URL form stays URL form, short form stays short.
func rewriteVersion(doc map[string]any, target string) {
	cur, _ := doc["version"].(string)
	if i := strings.Index(cur, "/version/"); i >= 0 {
		doc["version"] = cur[:i+len("/version/")] + target
		return
	}
	doc["version"] = target
}

func eachItem(doc map[string]any, fn func(item map[string]any)) {
	items, _ := doc["items"].([]any)
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			fn(m)
		}
	}
}

func renameKey(m map[string]any, from, to string) {
	if v, ok := m[from]; ok {
		if _, taken := m[to]; !taken {
			m[to] = v
		}
		delete(m, from)
	}
}

// stripExtensions removes underscore-prefixed keys recursively, leaving the
// core schema untouched.
func stripExtensions(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if strings.HasPrefix(k, "_") {
				delete(t, k)
				continue
			}
			stripExtensions(val)
		}
	case []any:
		for _, e := range t {
			stripExtensions(e)
		}
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
