package migrate

import (
	"github.com/ansybl/ansybl-go/feed"
	"github.com/ansybl/ansybl-go/version"
)

// Shim parses documents of any migratable release as if they were written for
// a single target release, migrating transparently when needed.
type Shim struct {
	target version.Version
	engine *Engine
	parser *feed.Parser
}

// ShimResult is a parse result annotated with migration provenance.
type ShimResult struct {
	feed.Result
	// DirectParse is true when the document already spoke the target release.
	DirectParse bool
	// Migrated is true when a migration ran before the final parse.
	Migrated      bool
	TargetVersion string
	Applied       []Record
}

// NewShim builds a shim for the given target release.
func NewShim(target version.Version, opts ...Option) *Shim {
	return &Shim{
		target: target,
		engine: NewEngine(opts...),
		parser: feed.NewParser(),
	}
}

// Parse parses input at the shim's target release. Documents already at the
// target parse directly; older or newer migratable documents are migrated
// first. Either way the caller gets one uniform result shape.
func (s *Shim) Parse(input any, opts feed.ParseOptions) ShimResult {
	res := ShimResult{TargetVersion: s.target.ShortString()}

	// Peek at the declared version with extensions forced on, so a migration
	// pass sees the complete document.
	peek := s.parser.Parse(input, feed.ParseOptions{PreserveExtensions: true})
	if !peek.Success {
		res.Result = s.parser.Parse(input, opts)
		res.DirectParse = true
		return res
	}

	v, err := version.Parse(peek.Document.Version)
	if err == nil && v.ShortString() == s.target.ShortString() {
		res.Result = s.parser.Parse(input, opts)
		res.DirectParse = true
		return res
	}

	mig := s.engine.Migrate(peek.Document.ToMap(), s.target, Options{
		PreserveExtensions: opts.PreserveExtensions,
	})
	if !mig.Success {
		res.Result = feed.Result{Errors: mig.Issues}
		return res
	}
	res.Result = s.parser.Parse(mig.Document, opts)
	res.Migrated = true
	res.Applied = mig.AppliedTransformations
	return res
}
