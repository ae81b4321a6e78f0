package endpoint

import "testing"

func TestParseForms(t *testing.T) {
	cases := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"example.com", "example.com", 0},
		{"example.com:8080", "example.com", 8080},
		{"10.0.0.1", "10.0.0.1", 0},
		{"10.0.0.1:8080", "10.0.0.1", 8080},
		{"[::1]:8080", "::1", 8080},
		{"[::1]", "::1", 0},
		{"EXAMPLE.COM", "example.com", 0},
	}
	for _, c := range cases {
		e, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %s", c.in, err)
		}
		if e.Host() != c.wantHost {
			t.Fatalf("Parse(%q).Host() = %q, want %q", c.in, e.Host(), c.wantHost)
		}
		if e.Port() != c.wantPort {
			t.Fatalf("Parse(%q).Port() = %d, want %d", c.in, e.Port(), c.wantPort)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{"", "   ", "host with space", "host:0", "host:70000", "host:-1", "host:notaport"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q) expected error, got nil", c)
		}
	}
}

func TestAuthorityRoundTrip(t *testing.T) {
	e := MustOf("example.com", 8080)
	if got := e.Authority(); got != "example.com:8080" {
		t.Fatalf("Authority() = %q", got)
	}
	back, err := Parse(e.Authority())
	if err != nil {
		t.Fatalf("round trip parse failed: %s", err)
	}
	if !back.Equal(e) {
		t.Fatalf("round trip not equal: %+v vs %+v", back, e)
	}
}

func TestIPv6Authority(t *testing.T) {
	e, err := Parse("[::1]:9090")
	if err != nil {
		t.Fatalf("Parse: %s", err)
	}
	if got := e.Authority(); got != "[::1]:9090" {
		t.Fatalf("Authority() = %q, want [::1]:9090", got)
	}
	if !e.HasIPAddr() {
		t.Fatalf("expected HasIPAddr true")
	}
}

func TestWithWeightDoesNotAffectEqual(t *testing.T) {
	a := MustOf("h", 1)
	b, err := a.WithWeight(5)
	if err != nil {
		t.Fatalf("WithWeight: %s", err)
	}
	if !a.Equal(b) {
		t.Fatalf("Equal should ignore weight")
	}
	if a.EqualWithWeight(b) {
		t.Fatalf("EqualWithWeight should distinguish weight")
	}
}

func TestWithIPAddrAffectsEqual(t *testing.T) {
	a := MustOf("h", 1)
	b, err := a.WithIPAddr("10.0.0.5")
	if err != nil {
		t.Fatalf("WithIPAddr: %s", err)
	}
	if a.Equal(b) {
		t.Fatalf("Equal should distinguish ipAddr")
	}
}

func TestNegativeWeightRejected(t *testing.T) {
	a := MustOf("h", 1)
	if _, err := a.WithWeight(-1); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}

func TestParseWeighted(t *testing.T) {
	e, err := ParseWeighted("10.0.0.1:8080#3", 0)
	if err != nil {
		t.Fatalf("ParseWeighted: %s", err)
	}
	if e.Weight() != 3 {
		t.Fatalf("Weight() = %d, want 3", e.Weight())
	}

	e2, err := ParseWeighted("10.0.0.1", 9090)
	if err != nil {
		t.Fatalf("ParseWeighted: %s", err)
	}
	if e2.Port() != 9090 {
		t.Fatalf("expected default port applied, got %d", e2.Port())
	}
}

func TestParseWeightedInvalidSuffix(t *testing.T) {
	if _, err := ParseWeighted("host#abc", 0); err == nil {
		t.Fatalf("expected error for invalid weight suffix")
	}
}
