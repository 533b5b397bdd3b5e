package version

import "testing"

func TestParse_SurfaceSyntaxes(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"https://ansybl.org/version/1.0", Version{Major: 1, Minor: 0}},
		{"https://ansybl.org/version/1.0.2", Version{Major: 1, Minor: 0, Patch: 2}},
		{"1.0.2-beta", Version{Major: 1, Minor: 0, Patch: 2, Prerelease: "beta"}},
		{"1.0", Version{Major: 1, Minor: 0}},
		{"0.9", Version{Minor: 9}},
		{"2.1.3", Version{Major: 2, Minor: 1, Patch: 3}},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.in, err)
			continue
		}
		if got.Major != c.want.Major || got.Minor != c.want.Minor ||
			got.Patch != c.want.Patch || got.Prerelease != c.want.Prerelease {
			t.Errorf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParse_RejectsUnrecognizedSyntax(t *testing.T) {
	for _, in := range []string{"", "1", "v1.0", "1.x", "one.two", "1.0.0.0", "https://ansybl.org/ver/1.0"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestCompare_Ordering(t *testing.T) {
	ordered := []string{"0.9.0", "1.0.0-alpha", "1.0.0-beta", "1.0.0", "1.0.1", "1.1.0", "2.0.0"}
	for i := 0; i < len(ordered)-1; i++ {
		a, b := MustParse(ordered[i]), MustParse(ordered[i+1])
		if a.Compare(b) >= 0 {
			t.Errorf("expected %s < %s", a, b)
		}
		if b.Compare(a) <= 0 {
			t.Errorf("expected %s > %s", b, a)
		}
	}
	if MustParse("1.0").Compare(MustParse("https://ansybl.org/version/1.0")) != 0 {
		t.Error("surface syntax must not affect ordering")
	}
}

func TestIsCompatibleWith_MajorRule(t *testing.T) {
	v10, v11, v20 := MustParse("1.0"), MustParse("1.1"), MustParse("2.0")
	if !v10.IsCompatibleWith(v11) || !v11.IsCompatibleWith(v10) {
		t.Error("equal-major versions must be compatible")
	}
	if v10.IsCompatibleWith(v20) {
		t.Error("cross-major compatibility requires an exception entry")
	}
}

func TestCheckCompatibility(t *testing.T) {
	v09, v10, v11 := MustParse("0.9"), MustParse("1.0"), MustParse("1.1")

	if r := CheckCompatibility(v10, v10); r.Relation != RelationSame {
		t.Errorf("same release: got %+v", r)
	}
	if r := CheckCompatibility(v11, v10); r.Relation != RelationBackward {
		t.Errorf("newer reader: got %+v", r)
	}
	if r := CheckCompatibility(v10, v11); r.Relation != RelationForward {
		t.Errorf("older reader: got %+v", r)
	}
	if r := CheckCompatibility(v10, v09); r.Relation != RelationBackward {
		t.Errorf("1.0 reader on 0.9 document: got %+v", r)
	}

	r := CheckCompatibility(MustParse("3.0"), v10)
	if r.Relation != RelationIncompatible {
		t.Errorf("unrelated majors: got %+v", r)
	}
	if r.Reason == "" || len(r.Hints) == 0 {
		t.Error("incompatible result must carry a reason and hints")
	}
}

func TestLookup_UnknownVersionIsEmptyNotError(t *testing.T) {
	info := Lookup(MustParse("9.9"))
	if len(info.SupportedFeatures) != 0 || len(info.RequiredFields) != 0 {
		t.Fatalf("unknown release must yield empty info, got %+v", info)
	}
}

func TestMatrix_FeatureProgression(t *testing.T) {
	v09 := Lookup(MustParse("0.9"))
	v10 := Lookup(MustParse("1.0"))
	v11 := Lookup(MustParse("1.1"))
	if contains(v09.SupportedFeatures, FeatureInteractions) {
		t.Error("0.9 must not support interactions")
	}
	if !contains(v10.SupportedFeatures, FeatureInteractions) {
		t.Error("1.0 must support interactions")
	}
	if !contains(v11.SupportedFeatures, FeatureItemUUID) {
		t.Error("1.1 must support item uuids")
	}
}
