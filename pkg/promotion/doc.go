// Package promotion governs how a feature moves between environments.
//
// A Request goes from requested to approved or rejected and stays there:
//
//	requested --approve--> approved
//	requested --reject---> rejected
//
// Firing any event at a resolved request fails with a *TransitionError that
// unwraps to ErrInvalidTransition. Rejection requires a reason. While a
// request for a (feature, from, to) route is pending, a second one for the same
// route is refused with ErrAlreadyPending; once resolved, a new request may be
// opened and becomes the route's latest.
//
// The workflow signals promotions, it does not copy configuration. An optional
// Applier does that on approval; if it fails the request stays pending and the
// caller may retry. Every state change is sent to the audit Logger and to an
// optional Observer, which the toggle engine uses to propagate the change.
package promotion
