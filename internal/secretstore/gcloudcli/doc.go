// Package gcloudcli implements secretstore.Store by driving the gcloud CLI.
//
// Every primitive maps onto one `gcloud secrets` invocation executed through
// execshell, so operators can migrate with whatever credentials their gcloud
// installation already holds. Payloads travel over standard input and output only.
package gcloudcli
