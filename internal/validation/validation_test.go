package validation

import (
	"testing"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fileKey  = schema.InodeKey{Dev: 1, Ino: 20}
	fileMeta = &schema.Metadata{Device: 1, Inode: 20, Links: 3, IsRegular: true}
	dirMeta  = &schema.Metadata{Device: 1, Inode: 10, IsDir: true}
)

// makeValid returns a valid plan that moves /src to /dst with a hardlink
// group of two paths inside and one outside of the source.
func makeValid() *plan.Plan {
	return &plan.Plan{
		Source:         "/src",
		Destination:    "/dst",
		SourceIsDir:    true,
		SameFilesystem: true,
		Steps: []plan.Step{
			&plan.DirectoryCreate{Path: "/dst", SourcePath: "/src", Metadata: dirMeta},
			&plan.DirectoryCreate{Path: "/dst/sub", SourcePath: "/src/sub", Metadata: dirMeta},
			&plan.PrimaryMove{Key: fileKey, SourcePath: "/src/a", DestPath: "/dst/a", Metadata: fileMeta},
			&plan.RelinkMove{Key: fileKey, SourcePath: "/src/sub/b", DestPath: "/dst/sub/b", PrimaryDestPath: "/dst/a"},
			&plan.RelinkMove{Key: fileKey, SourcePath: "/outside/c", DestPath: "/outside/c", PrimaryDestPath: "/dst/a"},
		},
	}
}

// TestValidatePlan tests validation of a [plan.Plan] against single
// violations of its invariants.
func TestValidatePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		modify   func(p *plan.Plan)
		expected error
	}{
		{
			name:     "Success_Valid",
			modify:   func(p *plan.Plan) {},
			expected: nil,
		},
		{
			name: "Success_WithMissingParents",
			modify: func(p *plan.Plan) {
				p.Destination = "/new/dst"
				p.Steps = []plan.Step{
					&plan.DirectoryCreate{Path: "/new"},
					&plan.DirectoryCreate{Path: "/new/dst", SourcePath: "/src", Metadata: dirMeta},
					&plan.PrimaryMove{Key: fileKey, SourcePath: "/src/a", DestPath: "/new/dst/a", Metadata: fileMeta},
				}
			},
			expected: nil,
		},
		{
			name: "Success_KeptSourceReleased",
			modify: func(p *plan.Plan) {
				p.SameFilesystem = false
				p.Steps = p.Steps[:4]
				p.Steps[2].(*plan.PrimaryMove).KeepSource = true
				p.Steps[3].(*plan.RelinkMove).PrimarySourcePath = "/src/a"
			},
			expected: nil,
		},
		{
			name: "Fail_KeptSourceNotReleased",
			modify: func(p *plan.Plan) {
				p.SameFilesystem = false
				p.Steps = p.Steps[:4]
				p.Steps[2].(*plan.PrimaryMove).KeepSource = true
			},
			expected: ErrKeptSourceNotReleased,
		},
		{
			name: "Fail_ReleasedSourceNotKept",
			modify: func(p *plan.Plan) {
				p.Steps[3].(*plan.RelinkMove).PrimarySourcePath = "/src/a"
			},
			expected: ErrReleasedSourceNotKept,
		},
		{
			name:     "Fail_RelativeSource",
			modify:   func(p *plan.Plan) { p.Source = "src" },
			expected: ErrSourcePathRelative,
		},
		{
			name:     "Fail_RelativeDestination",
			modify:   func(p *plan.Plan) { p.Destination = "dst" },
			expected: ErrDestPathRelative,
		},
		{
			name: "Fail_RelinkBeforePrimary",
			modify: func(p *plan.Plan) {
				p.Steps[2], p.Steps[3] = p.Steps[3], p.Steps[2]
			},
			expected: schema.ErrOrderingViolation,
		},
		{
			name: "Fail_RelinkWrongPrimary",
			modify: func(p *plan.Plan) {
				p.Steps[3].(*plan.RelinkMove).PrimaryDestPath = "/dst/other"
			},
			expected: schema.ErrOrderingViolation,
		},
		{
			name: "Fail_DuplicatePrimary",
			modify: func(p *plan.Plan) {
				p.Steps = append(p.Steps, &plan.PrimaryMove{Key: fileKey, SourcePath: "/src/x", DestPath: "/dst/x", Metadata: fileMeta})
			},
			expected: ErrDuplicatePrimary,
		},
		{
			name: "Fail_ParentNotPlanned",
			modify: func(p *plan.Plan) {
				p.Steps = append(p.Steps[:1], p.Steps[2:]...)
			},
			expected: ErrParentNotPlanned,
		},
		{
			name: "Fail_DuplicateDestination",
			modify: func(p *plan.Plan) {
				p.Steps = append(p.Steps, &plan.PrimaryMove{
					Key: schema.InodeKey{Dev: 1, Ino: 99}, SourcePath: "/src/z", DestPath: "/dst/a",
					Metadata: &schema.Metadata{Device: 1, Inode: 99, Links: 1, IsRegular: true},
				})
			},
			expected: ErrDuplicateDestination,
		},
		{
			name: "Fail_DestinationOutsideTree",
			modify: func(p *plan.Plan) {
				p.Steps[2].(*plan.PrimaryMove).DestPath = "/elsewhere/a"
			},
			expected: ErrDestMismatch,
		},
		{
			name: "Fail_SourceOutsideTree",
			modify: func(p *plan.Plan) {
				p.Steps[2].(*plan.PrimaryMove).SourcePath = "/elsewhere/a"
			},
			expected: ErrSourceMismatch,
		},
		{
			name:     "Fail_OutsideRelinkAcrossFilesystems",
			modify:   func(p *plan.Plan) { p.SameFilesystem = false },
			expected: ErrOutsideRelinkAcrossFilesystems,
		},
		{
			name: "Fail_NoMetadata",
			modify: func(p *plan.Plan) {
				p.Steps[2].(*plan.PrimaryMove).Metadata = nil
			},
			expected: ErrNoMetadata,
		},
		{
			name: "Fail_DirectoryNotDir",
			modify: func(p *plan.Plan) {
				p.Steps[1].(*plan.DirectoryCreate).Metadata = fileMeta
			},
			expected: ErrRelatedDirNotDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := makeValid()
			tt.modify(p)

			err := ValidatePlan(p)
			if tt.expected == nil {
				require.NoError(t, err)

				return
			}
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestValidatePlan_Nil(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ValidatePlan(nil), ErrNoPlan)
}
