// Package fixture captures registry responses and compares live responses
// against them.
//
// A Fixture records one request/response exchange under a stable key: the
// scenario name plus the variant within the scenario. Only the headers a
// contract whitelists are kept. Bodies are compared by digest rather than
// byte for byte:
//
//   - JSON bodies are canonicalized with RFC 8785 (JCS) first, so key order
//     and insignificant whitespace do not matter
//   - text bodies are NFC-normalized, line endings become \n and trailing
//     whitespace is dropped
//   - everything else is hashed as is
//
// Digests are BLAKE3 with a domain prefix.
//
// SQLiteStore persists fixtures. Regenerating a scenario replaces all of its
// fixtures in one transaction; fixtures are never updated in place.
package fixture
