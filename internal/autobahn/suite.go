// Package autobahn assembles and launches the dockerized Autobahn TestSuite
// invocation for a chosen suite. The JSON config schema and the report
// format are owned by the external tool; this package only derives paths and
// the container command line.
package autobahn

// Suite is one of the two test modes supported by the wrapped tool: the
// client suite fuzzes a WebSocket server, the server suite fuzzes a client.
type Suite string

const (
	SuiteClient Suite = "client"
	SuiteServer Suite = "server"
)

// Usage is printed verbatim when the CLI argument is not a known suite.
const Usage = "available test modes: client, server"

// ParseSuite maps the CLI argument to a Suite.
func ParseSuite(arg string) (Suite, bool) {
	switch Suite(arg) {
	case SuiteClient, SuiteServer:
		return Suite(arg), true
	}
	return "", false
}

// TestMode returns the tool's mode string, e.g. "fuzzingclient".
func (s Suite) TestMode() string {
	return "fuzzing" + string(s)
}

// ConfigPath returns the suite config path relative to the working
// directory, e.g. "config/fuzzingclient.json".
func (s Suite) ConfigPath() string {
	return "config/" + s.TestMode() + ".json"
}
