package domain

import "testing"

func TestParseCEFRLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   CEFRLevel
		wantOK bool
	}{
		{"B2", LevelB2, true},
		{" c1 ", LevelC1, true},
		{"a1", LevelA1, true},
		{"B3", "", false},
		{"", "", false},
		{"intermediate", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCEFRLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseCEFRLevel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	if len(SupportedLanguages) != 24 {
		t.Errorf("expected 24 languages, got %d", len(SupportedLanguages))
	}
	if !IsSupportedLanguage("FR") {
		t.Error("FR should be supported case-insensitively")
	}
	if IsSupportedLanguage("ja") {
		t.Error("ja is not an EU language")
	}
	if LanguageName("de") != "German" || LanguageName("xx") != "Unknown" {
		t.Error("unexpected language names")
	}
	if !IsSupportedLanguage(DefaultLanguage) {
		t.Error("default language must be supported")
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	in := StringArray{"subjonctif", "passé composé"}
	v, err := in.Value()
	if err != nil {
		t.Fatal(err)
	}

	var out StringArray
	if err := out.Scan([]byte(v.(string))); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1] != "passé composé" {
		t.Errorf("scan = %v", out)
	}

	var empty StringArray
	if err := empty.Scan(nil); err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("nil scan = %v, %v", empty, err)
	}
	if err := empty.Scan(42); err == nil {
		t.Error("expected error for int column")
	}
}

func TestVectorScan(t *testing.T) {
	var v Vector
	if err := v.Scan("[0.5,-0.25,1]"); err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 || v[1] != -0.25 {
		t.Errorf("scan = %v", v)
	}

	val, err := Vector(nil).Value()
	if err != nil || val != "[]" {
		t.Errorf("nil Value = %v, %v", val, err)
	}
}
