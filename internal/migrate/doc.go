// Package migrate copies discovered tenant credentials into the destination scopes
// named by the organization mapping.
//
// Service enforces the per-credential rules: global credentials stay put, credentials
// without a route are skipped, and a destination that already holds the same display
// name and tenant stops the run. CommandBuilder wires mapping load, discovery, the
// service, and report rendering into the migrate command.
package migrate
