package autobahn

import "testing"

func TestParseSuite(t *testing.T) {
	testCases := []struct {
		arg  string
		want Suite
		ok   bool
	}{
		{"client", SuiteClient, true},
		{"server", SuiteServer, true},
		{"", "", false},
		{"both", "", false},
		{"Client", "", false}, // mode strings are exact and lowercase
		{"fuzzingclient", "", false},
	}

	for _, tc := range testCases {
		t.Run("arg="+tc.arg, func(t *testing.T) {
			got, ok := ParseSuite(tc.arg)
			if ok != tc.ok || got != tc.want {
				t.Errorf("ParseSuite(%q) = (%q, %v), want (%q, %v)", tc.arg, got, ok, tc.want, tc.ok)
			}
		})
	}
}

// TestDerivedValues pins the strings handed to the external tool.
func TestDerivedValues(t *testing.T) {
	if got := SuiteClient.TestMode(); got != "fuzzingclient" {
		t.Errorf("client test mode: got %q", got)
	}
	if got := SuiteServer.TestMode(); got != "fuzzingserver" {
		t.Errorf("server test mode: got %q", got)
	}
	if got := SuiteClient.ConfigPath(); got != "config/fuzzingclient.json" {
		t.Errorf("client config path: got %q", got)
	}
	if got := SuiteServer.ConfigPath(); got != "config/fuzzingserver.json" {
		t.Errorf("server config path: got %q", got)
	}
}

func TestUsageMessage(t *testing.T) {
	if Usage != "available test modes: client, server" {
		t.Fatalf("usage message changed: %q", Usage)
	}
}
