package perr

import "log"

// Collector accumulates errors and warnings for one pipeline stage. A
// stage keeps diagnosing its input after a domain error — the same
// "log it, skip the offending line, keep scanning" discipline the
// notation parser's chart.go ancestor uses in parseTrackLine/parseSongLine
// — and the pipeline aborts only at the stage boundary, once Err() is
// consulted. A Collector is never handed to a later stage.
type Collector struct {
	Errors   []*Error
	Warnings []Warning
	Verbose  bool // detailed_validation_logging
}

// NewCollector returns an empty collector.
func NewCollector(verbose bool) *Collector {
	return &Collector{Verbose: verbose}
}

// Add records an error and keeps going.
func (c *Collector) Add(err *Error) {
	c.Errors = append(c.Errors, err)
	log.Printf("[ERROR] %s", err.Error())
}

// Warn records a non-fatal warning.
func (c *Collector) Warn(w Warning) {
	c.Warnings = append(c.Warnings, w)
	log.Printf("[WARN] %s", w.String())
}

// Note logs a diagnostic line only when detailed_validation_logging is on.
func (c *Collector) Note(format string, args ...any) {
	if c.Verbose {
		log.Printf("[INFO] "+format, args...)
	}
}

// Failed reports whether this stage accumulated at least one error; the
// pipeline checks this at the stage boundary and aborts before running
// the next stage.
func (c *Collector) Failed() bool {
	return len(c.Errors) > 0
}

// Err collapses the accumulated errors into a single error value (nil if
// none), for returning from a stage function.
func (c *Collector) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	if len(c.Errors) == 1 {
		return c.Errors[0]
	}
	return &MultiError{Errors: c.Errors}
}

// MultiError wraps more than one stage error.
type MultiError struct {
	Errors []*Error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	s := m.Errors[0].Error()
	if len(m.Errors) > 1 {
		s += " (+ more)"
	}
	return s
}

func (m *MultiError) Unwrap() []error {
	errs := make([]error, len(m.Errors))
	for i, e := range m.Errors {
		errs[i] = e
	}
	return errs
}
