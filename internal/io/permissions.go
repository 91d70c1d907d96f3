package io

import (
	"errors"
	"fmt"

	"github.com/desertwitch/smartmove/internal/schema"
	"golang.org/x/sys/unix"
)

// errOwnershipHint is added to ownership warnings of processes without root.
var errOwnershipHint = errors.New("run as root (sudo) to preserve ownership")

// ensurePermissions sets ownership and permissions of an element. Ownership
// that is not permitted to be set becomes a [schema.OwnershipWarning] about the
// element at reportPath, any other failure is returned.
func (r *run) ensurePermissions(path string, reportPath string, metadata *schema.Metadata) error {
	if err := r.unixHandler.Chown(path, int(metadata.UID), int(metadata.GID)); err != nil {
		if !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("(io-perms) failed to set ownership: %w", err)
		}
		r.ownershipWarning(reportPath, err)
	}

	if err := r.unixHandler.Chmod(path, metadata.Perms); err != nil {
		return fmt.Errorf("(io-perms) failed to set permissions: %w", err)
	}

	return nil
}

// ensureLinkPermissions sets the ownership of a symbolic link itself.
func (r *run) ensureLinkPermissions(path string, metadata *schema.Metadata) error {
	if err := r.unixHandler.Lchown(path, int(metadata.UID), int(metadata.GID)); err != nil {
		if !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("(io-perms) failed to set link ownership: %w", err)
		}
		r.ownershipWarning(path, err)
	}

	return nil
}

func (r *run) ownershipWarning(path string, err error) {
	if !r.isRoot {
		err = fmt.Errorf("%w (%w)", err, errOwnershipHint)
	}
	r.warn(schema.OwnershipWarning, path, err)
}
