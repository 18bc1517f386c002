// Package routing loads the organization to destination mapping that decides where each
// tenant credential is copied.
package routing
