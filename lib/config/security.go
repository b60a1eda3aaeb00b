package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-i2p/logger"
)

// SecureFilePermissions is used for key material.
const SecureFilePermissions = 0o600

// SecureDirPermissions is used for directories holding key material.
const SecureDirPermissions = 0o700

// SanitizePath resolves userPath against basePath and fails if the result
// escapes basePath.
func SanitizePath(basePath, userPath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}
	cleanBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	if userPath == "" {
		return cleanBase, nil
	}

	resolved := userPath
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}
	resolved, err = filepath.Abs(filepath.Clean(resolved))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if resolved != cleanBase && !strings.HasPrefix(resolved, cleanBase+string(filepath.Separator)) {
		log.WithFields(logger.Fields{
			"at":            "SanitizePath",
			"reason":        "path_traversal_attempt",
			"base_path":     cleanBase,
			"resolved_path": resolved,
		}).Warn("potential path traversal blocked")
		return "", fmt.Errorf("path %q escapes base directory %q", userPath, basePath)
	}
	return resolved, nil
}

// CreateSecureDirectory creates path with SecureDirPermissions, tightening
// the mode of an existing directory.
func CreateSecureDirectory(path string) error {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, SecureDirPermissions); err != nil {
		return fmt.Errorf("failed to create secure directory %q: %w", cleanPath, err)
	}
	// MkdirAll leaves an existing directory's mode alone.
	if err := os.Chmod(cleanPath, SecureDirPermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "CreateSecureDirectory",
			"reason": "chmod_failed",
			"path":   cleanPath,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on directory")
	}
	return nil
}

// WriteSecureFile writes data with SecureFilePermissions.
func WriteSecureFile(path string, data []byte) error {
	cleanPath := filepath.Clean(path)
	if err := os.WriteFile(cleanPath, data, SecureFilePermissions); err != nil {
		return fmt.Errorf("failed to write secure file %q: %w", cleanPath, err)
	}
	// WriteFile does not change the mode of an existing file.
	if err := os.Chmod(cleanPath, SecureFilePermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "WriteSecureFile",
			"reason": "chmod_failed",
			"path":   cleanPath,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on file")
	}
	return nil
}

// IsPathSecure reports whether path grants no permission bits beyond
// maxMode. A missing path is secure.
func IsPathSecure(path string, maxMode os.FileMode) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Mode().Perm()&^maxMode == 0, nil
}
