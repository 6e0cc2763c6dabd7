// Package rules evaluates user-defined filtering rules against
// incoming events. A rule combines a keyword filter, a quiet-hours
// window, and a rolling-hour rate limit; the first rule in creation
// order whose gates all pass admits the event and sets its priority.
package rules
