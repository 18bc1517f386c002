// Package pathutils resolves operator-supplied file paths such as the mapping input and report output.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// FilePathResolver trims, expands leading home shortcuts, and cleans file paths.
type FilePathResolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewFilePathResolver constructs a FilePathResolver using the operating system home lookup.
func NewFilePathResolver() *FilePathResolver {
	return NewFilePathResolverWithProvider(os.UserHomeDir)
}

// NewFilePathResolverWithProvider constructs a FilePathResolver with a custom home directory provider.
func NewFilePathResolverWithProvider(provider HomeDirectoryProvider) *FilePathResolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &FilePathResolver{homeDirectoryProvider: provider}
}

// Resolve returns the cleaned path with any leading tilde expanded. Empty input stays empty.
func (resolver *FilePathResolver) Resolve(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return ""
	}
	return filepath.Clean(resolver.expandHome(trimmedPath))
}

func (resolver *FilePathResolver) expandHome(candidatePath string) string {
	if !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	homeDirectory := resolver.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == tildeSymbolConstant:
		return homeDirectory
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant))
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix))
	default:
		return candidatePath
	}
}

func (resolver *FilePathResolver) resolveHomeDirectory() string {
	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil {
		return ""
	}
	return resolver.homeDirectory
}
