package io

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/index"
	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestHandler() *Handler {
	return NewHandler(filesystem.NewHandler(&schema.OS{}, &schema.Unix{}), &schema.OS{}, &schema.Unix{})
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func inodeOf(t *testing.T, path string) (uint64, uint64) {
	t.Helper()

	var st unix.Stat_t
	require.NoError(t, unix.Lstat(path, &st))

	return st.Ino, uint64(st.Nlink) //nolint:unconvert
}

// copyTimes gives a file the access and modification time of another file.
func copyTimes(t *testing.T, from string, to string) {
	t.Helper()

	var st unix.Stat_t
	require.NoError(t, unix.Lstat(from, &st))
	require.NoError(t, unix.UtimesNano(to, []unix.Timespec{st.Atim, st.Mtim}))
}

// linkCounts returns the link count of every non-directory below a root.
func linkCounts(t *testing.T, root string) map[string]uint64 {
	t.Helper()

	counts := make(map[string]uint64)
	for _, path := range listTree(t, root) {
		var st unix.Stat_t
		require.NoError(t, unix.Lstat(path, &st))
		if st.Mode&unix.S_IFMT != unix.S_IFDIR {
			counts[path] = uint64(st.Nlink) //nolint:unconvert
		}
	}

	return counts
}

func listTree(t *testing.T, root string) []string {
	t.Helper()

	var paths []string
	require.NoError(t, filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)

		return nil
	}))
	slices.Sort(paths)

	return paths
}

func buildPlan(t *testing.T, req schema.MoveRequest) *plan.Plan {
	t.Helper()

	fsHandler := filesystem.NewHandler(&schema.OS{}, &schema.Unix{})

	sc, err := scope.NewHandler(fsHandler, scope.NewMountTable(&schema.OS{}, scope.MountTableFile)).Resolve(req)
	require.NoError(t, err)

	idx, err := index.NewHandler(fsHandler, &index.FileWalker{}).Build(context.Background(), sc, index.Options{})
	require.NoError(t, err)

	p, err := plan.Build(idx, sc)
	require.NoError(t, err)

	return p
}

// newTree creates a source directory holding a group of three hardlinks, a
// file in a subdirectory and a symbolic link.
func newTree(t *testing.T) (string, string, string) {
	t.Helper()

	root := t.TempDir()
	src := filepath.Join(root, "src")

	writeFile(t, filepath.Join(src, "a.bin"), "linked")
	require.NoError(t, os.Link(filepath.Join(src, "a.bin"), filepath.Join(src, "b.bin")))
	writeFile(t, filepath.Join(src, "sub", "c.bin"), "single")
	require.NoError(t, os.Link(filepath.Join(src, "a.bin"), filepath.Join(src, "sub", "d.bin")))
	require.NoError(t, os.Symlink("c.bin", filepath.Join(src, "sub", "e.lnk")))

	return root, src, filepath.Join(root, "dst")
}

type recordingReporter struct {
	events []Progress
}

func (r *recordingReporter) Report(p Progress) {
	r.events = append(r.events, p)
}

// cancelingReporter cancels the run once a given path was processed.
type cancelingReporter struct {
	path   string
	cancel context.CancelFunc
}

func (r *cancelingReporter) Report(p Progress) {
	if p.CurrentPath == r.path {
		r.cancel()
	}
}

func stepNames(results []StepResult) []string {
	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Step.String())
	}

	return names
}

func assertMovedTree(t *testing.T, src string, dst string) {
	t.Helper()

	_, err := os.Lstat(src)
	require.ErrorIs(t, err, fs.ErrNotExist, "source should be removed")

	inoA, linksA := inodeOf(t, filepath.Join(dst, "a.bin"))
	inoB, _ := inodeOf(t, filepath.Join(dst, "b.bin"))
	inoD, _ := inodeOf(t, filepath.Join(dst, "sub", "d.bin"))

	assert.Equal(t, inoA, inoB, "hardlinks should share one inode")
	assert.Equal(t, inoA, inoD, "hardlinks should share one inode")
	assert.Equal(t, uint64(3), linksA, "group should keep its link count")

	content, err := os.ReadFile(filepath.Join(dst, "sub", "c.bin"))
	require.NoError(t, err)
	assert.Equal(t, "single", string(content))

	target, err := os.Readlink(filepath.Join(dst, "sub", "e.lnk"))
	require.NoError(t, err)
	assert.Equal(t, "c.bin", target)
}

func TestExecute_Success_SameFilesystem(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}})
	reporter := &recordingReporter{}

	report := newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true, Reporter: reporter})

	require.NoError(t, report.Err)
	assert.Equal(t, 3, report.Renames)
	assert.Equal(t, 0, report.Copies)
	assert.Equal(t, 2, report.Links)
	assert.Equal(t, 2, report.HardlinksPreserved)
	assert.Equal(t, uint64(0), report.BytesCopied)
	assert.Equal(t, 2, report.DirectoriesRemoved)
	assert.Equal(t, len(p.Steps), report.CompletedSteps)
	assert.Len(t, reporter.events, len(p.Steps), "every step should emit progress")
	assert.False(t, report.HasWarnings())

	assertMovedTree(t, src, dst)
}

func TestExecute_Success_CrossFilesystemCopy(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	inoA, _ := inodeOf(t, filepath.Join(src, "a.bin"))
	inoC, _ := inodeOf(t, filepath.Join(src, "sub", "c.bin"))

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true})
	require.False(t, p.SameFilesystem)

	report := newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true, Verify: true})

	require.NoError(t, report.Err)
	assert.Equal(t, 0, report.Renames)
	assert.Equal(t, 2, report.Copies, "one copy per inode")
	assert.Equal(t, 2, report.Links, "one link per further path of a group")
	assert.Equal(t, 3, report.FilesMoved)
	assert.Equal(t, uint64(len("linked")+len("single")), report.BytesCopied)

	assertMovedTree(t, src, dst)

	movedA, _ := inodeOf(t, filepath.Join(dst, "a.bin"))
	movedC, _ := inodeOf(t, filepath.Join(dst, "sub", "c.bin"))
	assert.NotEqual(t, inoA, movedA, "a copy should be a new inode")
	assert.NotEqual(t, inoC, movedC, "a copy should be a new inode")

	for _, path := range listTree(t, dst) {
		assert.NotContains(t, filepath.Base(path), tmpSuffix, "no temporary file should remain")
	}
}

func TestExecute_Success_OutsideLinkSameFilesystem(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	outside := filepath.Join(root, "other", "x.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(outside), 0o755))
	require.NoError(t, os.Link(filepath.Join(src, "a.bin"), outside))

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}})

	report := newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true})

	require.NoError(t, report.Err)
	assert.Equal(t, 3, report.HardlinksPreserved)

	inoA, linksA := inodeOf(t, filepath.Join(dst, "a.bin"))
	inoX, _ := inodeOf(t, outside)
	assert.Equal(t, inoA, inoX, "outside link should still share the inode")
	assert.Equal(t, uint64(4), linksA)
}

func TestExecute_Success_DryRunUnchanged(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	before := listTree(t, root)
	beforeLinks := linkCounts(t, root)

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true})

	report := newTestHandler().Execute(context.Background(), p, Options{DryRun: true, RemoveSourceRoot: true})

	require.NoError(t, report.Err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 0, report.FilesMoved)
	assert.Equal(t, uint64(0), report.BytesCopied)
	assert.Equal(t, 2, report.Copies)
	assert.Equal(t, 2, report.Links)
	assert.Equal(t, len(p.Steps), report.CompletedSteps)
	assert.False(t, report.HasWarnings())

	assert.Equal(t, before, listTree(t, root), "dry run should not mutate anything")
	assert.Equal(t, beforeLinks, linkCounts(t, root), "dry run should not change link counts")
}

func TestExecute_Success_DryRunMatchesRealRun(t *testing.T) {
	t.Parallel()

	for _, forceCopy := range []bool{false, true} {
		root, src, dst := newTree(t)
		req := schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: forceCopy}

		dryPlan := buildPlan(t, req)
		dry := newTestHandler().Execute(context.Background(), dryPlan, Options{DryRun: true, RemoveSourceRoot: true})
		require.NoError(t, dry.Err)

		realPlan := buildPlan(t, req)
		actual := newTestHandler().Execute(context.Background(), realPlan, Options{RemoveSourceRoot: true})
		require.NoError(t, actual.Err)

		assert.Equal(t, stepNames(actual.Results), stepNames(dry.Results), "dry run should use the same steps")
		assert.Equal(t, actual.TotalSteps, dry.TotalSteps)
		assert.Equal(t, actual.CompletedSteps, dry.CompletedSteps)
		assert.Equal(t, actual.Renames, dry.Renames)
		assert.Equal(t, actual.Copies, dry.Copies)
		assert.Equal(t, actual.Links, dry.Links)
		assert.Equal(t, actual.HardlinksPreserved, dry.HardlinksPreserved)
		assert.Equal(t, actual.DirectoriesCreated, dry.DirectoriesCreated)
		assert.Equal(t, actual.Skipped, dry.Skipped)

		assertMovedTree(t, src, dst)
	}
}

func TestExecute_Success_IdempotentRerun(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	final := filepath.Join(dst, "src")
	writeFile(t, filepath.Join(final, "a.bin"), "linked")
	copyTimes(t, filepath.Join(src, "a.bin"), filepath.Join(final, "a.bin"))

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true})
	require.Equal(t, final, p.Destination, "existing directory should receive the source basename")

	report := newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true, Verify: true})

	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Copies, "only the file not yet at the destination is copied")
	assert.GreaterOrEqual(t, report.Skipped, 2, "existing directory and file are skipped")

	assertMovedTree(t, src, final)
}

func TestExecute_Success_ResumeAfterCancelInsideGroup(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	require.NoError(t, os.MkdirAll(dst, 0o755))
	final := filepath.Join(dst, "src")
	req := schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := buildPlan(t, req)
	report := newTestHandler().Execute(ctx, p, Options{
		RemoveSourceRoot: true,
		Verify:           true,
		Reporter:         &cancelingReporter{path: filepath.Join(final, "a.bin"), cancel: cancel},
	})

	require.ErrorIs(t, report.Err, schema.ErrCanceled)
	assert.Equal(t, 1, report.Copies)
	assert.Equal(t, 0, report.Links)

	_, links := inodeOf(t, filepath.Join(src, "a.bin"))
	assert.Equal(t, uint64(3), links, "source links should stay on one inode until the group is done")

	p = buildPlan(t, req)
	require.Equal(t, final, p.Destination)

	report = newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true, Verify: true})

	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Copies, "only the file outside of the group is left to copy")
	assert.Equal(t, 2, report.Links)
	assert.False(t, report.HasWarnings())

	assertMovedTree(t, src, final)
}

func TestExecute_Fail_SameSizeDestinationConflict(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "b.txt")

	writeFile(t, src, "AAAA")
	writeFile(t, dst, "BBBB")
	require.NoError(t, unix.UtimesNano(dst, []unix.Timespec{{}, {}}))

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}})
	require.Equal(t, dst, p.Destination)

	report := newTestHandler().Execute(context.Background(), p, Options{})

	require.ErrorIs(t, report.Err, ErrDestinationExists)
	assert.Equal(t, 0, report.Skipped)

	content, err := os.ReadFile(src)
	require.NoError(t, err, "source should be kept")
	assert.Equal(t, "AAAA", string(content))

	content, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "BBBB", string(content))
}

func TestExecute_Fail_DestinationConflict(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	final := filepath.Join(dst, "src")
	writeFile(t, filepath.Join(final, "a.bin"), "different")

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true})

	report := newTestHandler().Execute(context.Background(), p, Options{RemoveSourceRoot: true})

	require.Error(t, report.Err)
	require.ErrorIs(t, report.Err, schema.ErrAtomicRename)
	require.ErrorIs(t, report.Err, ErrDestinationExists)
	assert.Less(t, report.CompletedSteps, report.TotalSteps)

	content, err := os.ReadFile(filepath.Join(final, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "different", string(content), "conflicting element should not be replaced")

	_, err = os.Lstat(filepath.Join(src, "a.bin"))
	require.NoError(t, err, "source should be kept")
}

func TestExecute_Fail_DryRunConflictIsRisk(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	writeFile(t, filepath.Join(dst, "src", "a.bin"), "different")

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}})

	report := newTestHandler().Execute(context.Background(), p, Options{DryRun: true})

	require.NoError(t, report.Err)
	require.True(t, report.HasWarnings())
	assert.Equal(t, schema.DryRunRisk, report.Warnings[0].Kind)
	assert.Equal(t, len(p.Steps), report.CompletedSteps, "dry run should validate every step")
}

func TestExecute_Fail_OrderingViolation(t *testing.T) {
	t.Parallel()

	_, src, dst := newTree(t)

	p := &plan.Plan{
		Source:         src,
		Destination:    dst,
		SameFilesystem: true,
		Steps: []plan.Step{
			&plan.RelinkMove{
				SourcePath:      filepath.Join(src, "b.bin"),
				DestPath:        filepath.Join(dst, "b.bin"),
				PrimaryDestPath: filepath.Join(dst, "a.bin"),
			},
		},
	}

	report := newTestHandler().Execute(context.Background(), p, Options{})

	require.ErrorIs(t, report.Err, schema.ErrOrderingViolation)
	require.ErrorIs(t, report.Err, ErrPrimaryNotCompleted)

	_, err := os.Lstat(filepath.Join(src, "b.bin"))
	require.NoError(t, err, "source should be kept")
}

func TestExecute_Fail_Canceled(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)
	before := listTree(t, root)

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestHandler().Execute(ctx, p, Options{RemoveSourceRoot: true})

	require.ErrorIs(t, report.Err, schema.ErrCanceled)
	require.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, 0, report.CompletedSteps)
	assert.Equal(t, before, listTree(t, root))
}

func TestExecute_Fail_NotEnoughSpace(t *testing.T) {
	t.Parallel()

	root, src, dst := newTree(t)

	p := buildPlan(t, schema.MoveRequest{Source: src, Destination: dst, ScanRoots: []string{root}, ForceCopy: true})

	report := newTestHandler().Execute(context.Background(), p, Options{MinFreeSpace: math.MaxUint64})

	require.ErrorIs(t, report.Err, schema.ErrNotEnoughSpace)
	assert.Equal(t, 0, report.CompletedSteps)

	dry := newTestHandler().Execute(context.Background(), p, Options{MinFreeSpace: math.MaxUint64, DryRun: true})

	require.NoError(t, dry.Err)
	require.True(t, dry.HasWarnings())
	assert.Equal(t, schema.DryRunRisk, dry.Warnings[0].Kind)
}

func TestEnsurePermissions_Warning_OwnershipNotPermitted(t *testing.T) {
	t.Parallel()

	unixProv := newMockUnixProvider(t)
	handler := NewHandler(filesystem.NewHandler(&schema.OS{}, &schema.Unix{}), &schema.OS{}, unixProv)
	handler.isRoot = false

	r := newRun(handler, &plan.Plan{}, Options{})
	r.step = &Report{}

	md := &schema.Metadata{UID: 1000, GID: 100, Perms: 0o640}

	unixProv.On("Chown", "/mnt/dst/.a.tmp", 1000, 100).Return(unix.EPERM).Once()
	unixProv.On("Chmod", "/mnt/dst/.a.tmp", uint32(0o640)).Return(nil).Once()

	err := r.ensurePermissions("/mnt/dst/.a.tmp", "/mnt/dst/a", md)

	require.NoError(t, err)
	require.Len(t, r.step.Warnings, 1)
	assert.Equal(t, schema.OwnershipWarning, r.step.Warnings[0].Kind)
	assert.Equal(t, "/mnt/dst/a", r.step.Warnings[0].Path)
	require.ErrorIs(t, r.step.Warnings[0].Err, errOwnershipHint)
}

func TestEnsurePermissions_Fail_Chmod(t *testing.T) {
	t.Parallel()

	unixProv := newMockUnixProvider(t)
	handler := NewHandler(filesystem.NewHandler(&schema.OS{}, &schema.Unix{}), &schema.OS{}, unixProv)

	r := newRun(handler, &plan.Plan{}, Options{})
	r.step = &Report{}

	md := &schema.Metadata{UID: 1000, GID: 100, Perms: 0o640}

	unixProv.On("Chown", "/mnt/dst/a", 1000, 100).Return(nil).Once()
	unixProv.On("Chmod", "/mnt/dst/a", uint32(0o640)).Return(unix.EIO).Once()

	err := r.ensurePermissions("/mnt/dst/a", "/mnt/dst/a", md)

	require.ErrorIs(t, err, unix.EIO)
	assert.Empty(t, r.step.Warnings)
}

func TestRetryTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retryTransient(func() error {
		calls++
		if calls == 1 {
			return unix.EINTR
		}

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "interrupted call should be retried")

	calls = 0
	err = retryTransient(func() error {
		calls++

		return unix.EPERM
	})
	require.ErrorIs(t, err, unix.EPERM)
	assert.Equal(t, 1, calls, "permanent error should not be retried")

	calls = 0
	err = retryTransient(func() error {
		calls++

		return unix.EBUSY
	})
	require.True(t, errors.Is(err, unix.EBUSY))
	assert.Equal(t, retryAttempts, calls)
}

func TestSortDeepestFirst(t *testing.T) {
	t.Parallel()

	dirs := []string{"/a", "/a/b/c", "/a/b", "/x/y"}
	sortDeepestFirst(dirs)

	assert.Equal(t, []string{"/a/b/c", "/a/b", "/x/y", "/a"}, dirs)
}
