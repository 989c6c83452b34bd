package contract

import (
	"fmt"
	"net/http"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/registry"
)

// PublishExpect is the expectation for the publication cases.
type PublishExpect struct {
	Release ident.PackageRelease
}

// evaluatePublish checks the response to publishing a new release: 201
// when published synchronously, 202 with a Location to poll otherwise.
func evaluatePublish(in Input, resp *probe.Response) ([]Outcome, error) {
	if _, err := expectation[PublishExpect](in); err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusCreated, http.StatusAccepted)
	c.contentVersion(resp)
	if resp.StatusCode == http.StatusAccepted {
		desc := "accepted publication has a Location"
		if resp.Header.Get(registry.HeaderLocation) != "" {
			c.pass(desc)
		} else {
			c.fail(desc, "Location header is missing")
		}
	}
	return c.result()
}

// evaluateDuplicate checks that publishing an existing release conflicts.
func evaluateDuplicate(in Input, resp *probe.Response) ([]Outcome, error) {
	if _, err := expectation[PublishExpect](in); err != nil {
		return nil, err
	}
	c := newChecker(in)
	c.status(resp, http.StatusConflict)
	c.contentVersion(resp)
	c.problem(resp)
	return c.result()
}

// evaluateProcessing checks the terminal response of an asynchronous
// publication.
func evaluateProcessing(in Input, resp *probe.Response) ([]Outcome, error) {
	exp, err := expectation[PublishExpect](in)
	if err != nil {
		return nil, err
	}
	c := newChecker(in)
	desc := fmt.Sprintf("processing of %s succeeded", exp.Release)
	if provision.ProcessingSucceeded(resp.StatusCode) {
		c.pass(desc)
	} else {
		c.fail(desc, "expected one of 200, 201, 301, 303, got %d", resp.StatusCode)
	}
	return c.result()
}
