package http1

import "testing"

func TestParseMethod(t *testing.T) {
	tests := []struct {
		tok  string
		want Method
	}{
		{"GET", MethodGET},
		{"get", MethodGET},
		{"GeT", MethodGET},
		{"POST", MethodPOST},
		{"PUT", MethodPUT},
		{"DELETE", MethodDELETE},
		{"HEAD", MethodHEAD},
		{"OPTIONS", MethodOPTIONS},
		{"PATCH", MethodPATCH},
		{"TRACE", MethodTRACE},
		{"BOGUS", MethodUnknown},
		{"", MethodUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			if got := ParseMethod([]byte(tt.tok)); got != tt.want {
				t.Errorf("ParseMethod(%q) = %v, want %v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestMethodHonored(t *testing.T) {
	honored := map[Method]bool{
		MethodGET:     true,
		MethodPOST:    true,
		MethodPUT:     true,
		MethodDELETE:  true,
		MethodHEAD:    false,
		MethodOPTIONS: false,
		MethodPATCH:   false,
		MethodTRACE:   false,
		MethodUnknown: false,
	}
	for m, want := range honored {
		if got := m.Honored(); got != want {
			t.Errorf("%v.Honored() = %v, want %v", m, got, want)
		}
	}
}

func TestMethodStringRoundTrip(t *testing.T) {
	for _, tok := range []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH", "TRACE"} {
		m := ParseMethod([]byte(tok))
		if m.String() != tok {
			t.Errorf("ParseMethod(%q).String() = %q", tok, m.String())
		}
	}
}
