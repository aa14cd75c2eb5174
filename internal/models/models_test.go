package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&User{Role: RoleUser, IsStaff: true}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Jonalyn Rosell", (&User{FirstName: "Jonalyn", LastName: "Rosell"}).FullName())
	assert.Equal(t, "Jonalyn", (&User{FirstName: "Jonalyn"}).FullName())
	assert.Equal(t, "", (&User{}).FullName())
}

func TestProjectNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Project
		idea     string
		fileName string
		desc     string
	}{
		{
			name:     "link takes url as idea",
			in:       Project{FileType: FileTypeLink, LinkURL: "https://x.example/a", Description: "why"},
			idea:     "https://x.example/a",
			fileName: "https://x.example/a",
			desc:     "why",
		},
		{
			name:     "image takes base name and drops description",
			in:       Project{FileType: FileTypeImage, FilePath: "uploads/abc-photo.jpg", FileSize: 42, Description: "dropped"},
			idea:     "abc-photo.jpg",
			fileName: "uploads/abc-photo.jpg",
		},
		{
			name: "nothing attached",
			in:   Project{FileType: FileTypeVideo},
			idea: UntitledIdea,
		},
		{
			name:     "explicit idea kept",
			in:       Project{FileType: FileTypeLink, Idea: "case-7", LinkURL: "https://x.example"},
			idea:     "case-7",
			fileName: "https://x.example",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.idea, p.Idea)
			assert.Equal(t, tt.fileName, p.FileName)
			assert.Equal(t, tt.desc, p.Description)
			assert.Equal(t, VerdictPending, p.Verdict)
		})
	}
}

func TestFileType(t *testing.T) {
	assert.True(t, FileTypeImage.NeedsFile())
	assert.True(t, FileTypeVideo.NeedsFile())
	assert.False(t, FileTypeLink.NeedsFile())
	assert.False(t, FileType("pdf").Valid())
	assert.Equal(t, "ID12", PublicIDFor(12))
}
