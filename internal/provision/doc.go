// Package provision makes package releases exist on the registry under test
// before a scenario that depends on them runs.
//
// The Publisher uploads releases through the registry's own publish
// endpoint. A release that already exists (409 Conflict) counts as
// provisioned. Asynchronous publication (202 Accepted) is followed by
// polling the returned Location until the registry reports a terminal
// status.
package provision
