// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with zap logging via ShellExecutor, exposes OSCommandRunner
// for default process execution, and defines the abstractions the gcloud-backed
// secret store uses so command invocations can be replaced in tests. Standard
// input and output may carry secret payloads and are never logged.
package execshell
