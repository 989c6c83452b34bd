package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/regcompat/internal/contract"
)

// TextOptions controls text rendering.
type TextOptions struct {
	// Color styles the pass/fail markers for the terminal behind the
	// writer. Styling degrades to plain text when the writer is not a
	// terminal.
	Color bool
}

type markers struct {
	pass, fail func(string) string
}

func newMarkers(w io.Writer, opts TextOptions) markers {
	if !opts.Color {
		plain := func(s string) string { return s }
		return markers{pass: plain, fail: plain}
	}
	renderer := lipgloss.NewRenderer(w)
	passStyle := renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle := renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	return markers{
		pass: func(s string) string { return passStyle.Render(s) },
		fail: func(s string) string { return failStyle.Render(s) },
	}
}

// WriteText renders the report as text.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	m := newMarkers(w, opts)
	for _, s := range r.Scenarios {
		if s.Pass() {
			if _, err := fmt.Fprintf(w, "%s %s - All tests passed.\n", m.pass("PASS"), s.Name); err != nil {
				return err
			}
			continue
		}
		failures := s.Failures()
		if _, err := fmt.Fprintf(w, "%s %s - %d of %d tests failed.\n", m.fail("FAIL"), s.Name, len(failures), len(s.Outcomes)); err != nil {
			return err
		}
		for _, o := range failures {
			if err := writeFailure(w, m, o); err != nil {
				return err
			}
		}
	}

	verdict := m.pass("PASS")
	if !r.Pass {
		verdict = m.fail("FAIL")
	}
	_, err := fmt.Fprintf(w, "\n%s %d scenarios, %d tests: %d passed, %d failed\n",
		verdict, len(r.Scenarios), r.Total, r.Passed, r.Failed)
	return err
}

func writeFailure(w io.Writer, m markers, o contract.Outcome) error {
	line := "  " + m.fail("x") + " " + o.Description
	if o.Category != "" && o.Category != contract.CategoryAssertion {
		line += " [" + string(o.Category) + "]"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	if o.Detail != "" {
		if _, err := fmt.Fprintf(w, "      %s\n", o.Detail); err != nil {
			return err
		}
	}
	return nil
}
