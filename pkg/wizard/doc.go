// Package wizard implements the multi-step form controller shared by every
// partner intake form. A Definition describes the ordered steps of one form
// and the fields each step owns; a Controller walks a single user through
// those steps, validating the active step against its Schema, accumulating
// confirmed values, and handing the merged Values to a Submitter when the
// last step is confirmed.
//
// Validation failures are reported through Outcome and FieldErrors rather
// than returned as errors. Errors are reserved for programming mistakes such
// as jumping to a step that does not exist or navigating after submission.
//
// A Controller is owned by a single rendering surface and is not safe for
// concurrent use; surfaces that receive concurrent requests serialise access
// (see pkg/session).
package wizard
