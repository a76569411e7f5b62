// Package errs defines the error taxonomy shared across the module:
// typed errors carrying structured diagnostics (raw payloads, exit
// codes, captured stderr) and sentinel errors for checked conditions.
package errs
