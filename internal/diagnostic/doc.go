// Package diagnostic collects structured errors, warnings and notes about a
// loaded catalog.
//
// Each diagnostic names the part it concerns and, when one is at fault, the
// token that failed. Diagnostics never abort the pass that produces them;
// callers decide whether errors invalidate the whole cache.
package diagnostic
