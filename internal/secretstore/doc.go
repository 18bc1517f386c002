// Package secretstore defines the secret store collaborator consumed by the
// migration pipeline: listing secrets with their labels, creating secret
// containers, adding versions, and reading the latest version of a secret.
//
// Backends live in subpackages (Google Secret Manager, the gcloud CLI, and
// HashiCorp Vault KV v2). MemoryStore is a complete in-process implementation
// used for rehearsals and tests, and RateLimitedStore throttles any backend.
package secretstore
