package scope

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MountTableFile is the table of the filesystems mounted in the mount
// namespace of the running process.
const MountTableFile = "/proc/self/mounts"

// pseudoFilesystems are filesystem types that never hold user data and are
// therefore never scanned in [ModeComprehensive].
var pseudoFilesystems = map[string]struct{}{
	"autofs":      {},
	"binfmt_misc": {},
	"bpf":         {},
	"cgroup":      {},
	"cgroup2":     {},
	"configfs":    {},
	"debugfs":     {},
	"devpts":      {},
	"devtmpfs":    {},
	"efivarfs":    {},
	"fusectl":     {},
	"hugetlbfs":   {},
	"mqueue":      {},
	"nsfs":        {},
	"proc":        {},
	"pstore":      {},
	"rpc_pipefs":  {},
	"securityfs":  {},
	"selinuxfs":   {},
	"sysfs":       {},
	"tracefs":     {},
}

// Mount is a single entry of the mount table.
type Mount struct {
	Device string
	Path   string
	FSType string
}

// IsPseudo returns whether the [Mount] is a pseudo filesystem.
func (m Mount) IsPseudo() bool {
	_, ok := pseudoFilesystems[m.FSType]

	return ok
}

// openProvider defines operating system methods needed to read the mount
// table.
type openProvider interface {
	Open(name string) (*os.File, error)
}

// MountTable is the implementation reading [Mount] from a mount table file.
type MountTable struct {
	osHandler openProvider
	path      string
}

// NewMountTable returns a pointer to a new [MountTable] reading from the given
// file, usually [MountTableFile].
func NewMountTable(osHandler openProvider, path string) *MountTable {
	return &MountTable{
		osHandler: osHandler,
		path:      path,
	}
}

// Mounts reads and returns all entries of the mount table.
func (t *MountTable) Mounts() ([]Mount, error) {
	f, err := t.osHandler.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("(scope-mounts) failed to open: %w", err)
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return nil, fmt.Errorf("(scope-mounts) failed to parse: %w", err)
	}

	return mounts, nil
}

// parseMounts parses mount table lines in the fstab(5) format.
func parseMounts(r io.Reader) ([]Mount, error) {
	var mounts []Mount

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		mounts = append(mounts, Mount{
			Device: unescapeMountField(fields[0]),
			Path:   unescapeMountField(fields[1]),
			FSType: fields[2],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMountTableUnreadable, err)
	}

	return mounts, nil
}

// unescapeMountField replaces the octal escapes (such as "\040" for a space)
// that the kernel uses for whitespace and backslashes in mount table fields.
func unescapeMountField(field string) string {
	if !strings.Contains(field, `\`) {
		return field
	}

	var b strings.Builder
	b.Grow(len(field))

	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+3 < len(field) {
			if v, err := strconv.ParseUint(field[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3

				continue
			}
		}
		b.WriteByte(field[i])
	}

	return b.String()
}

// comprehensiveRoots returns the sorted and deduplicated mount points of all
// mounts that are neither pseudo filesystems nor excluded.
func comprehensiveRoots(mounts []Mount, excludes []string) []string {
	roots := make([]string, 0, len(mounts))

	for _, m := range mounts {
		if m.IsPseudo() {
			continue
		}

		if IsExcluded(m.Path, excludes) {
			slog.Debug("Skipped excluded mount for scan", "path", m.Path, "fstype", m.FSType)

			continue
		}

		roots = append(roots, m.Path)
	}

	slices.Sort(roots)

	return slices.Compact(roots)
}

// IsExcluded returns if a path matches any of the given doublestar patterns.
// Invalid patterns never match.
func IsExcluded(path string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}

	return false
}
