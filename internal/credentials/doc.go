// Package credentials reconstructs tenant credential records from labelled secrets
// in a shared source scope.
package credentials
