// Package probe sends single HTTP requests to the registry under test.
//
// A probe makes exactly one attempt. Any well-formed HTTP response, whatever
// its status, is returned as a *Response; only connection failures, timeouts,
// cancellation and malformed framing are reported as *TransportError.
//
// Redirects are never followed so that 3xx answers stay observable to the
// contracts that judge them.
//
// Each call runs under its own timeout. The response body is read completely
// and closed before Send returns, so a timed out or canceled call releases
// its connection.
package probe
