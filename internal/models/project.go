package models

import (
	"fmt"
	"path"
	"time"
)

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeLink  FileType = "link"
)

var FileTypes = []FileType{FileTypeImage, FileTypeVideo, FileTypeLink}

func (t FileType) Valid() bool {
	switch t {
	case FileTypeImage, FileTypeVideo, FileTypeLink:
		return true
	}
	return false
}

// NeedsFile reports whether the kind is backed by an uploaded file rather than a URL.
func (t FileType) NeedsFile() bool {
	return t == FileTypeImage || t == FileTypeVideo
}

const (
	VerdictPending = "Pending"
	UntitledIdea   = "Untitled evidence"
)

// Project is one piece of submitted evidence.
type Project struct {
	ID                   int       `json:"id"`
	UserID               int       `json:"user_id"`
	Username             string    `json:"username"`
	Idea                 string    `json:"idea"`
	FileType             FileType  `json:"file_type"`
	FilePath             string    `json:"file_path,omitempty"`
	LinkURL              string    `json:"link_url,omitempty"`
	Description          string    `json:"description"`
	FileName             string    `json:"file_name"`
	FileSize             int64     `json:"file_size"`
	PublicID             string    `json:"public_id"`
	PredictionConfidence float64   `json:"prediction_confidence"`
	Verdict              string    `json:"verdict"`
	CreatedAt            time.Time `json:"created_at"`
}

func (p *Project) String() string {
	return fmt.Sprintf("%s (%s)", p.Idea, p.FileType)
}

// Normalize fills the derived fields before the first insert.
func (p *Project) Normalize() {
	if p.Idea == "" {
		switch {
		case p.LinkURL != "":
			p.Idea = p.LinkURL
		case p.FilePath != "":
			p.Idea = path.Base(p.FilePath)
		default:
			p.Idea = UntitledIdea
		}
	}

	if p.FileType.NeedsFile() {
		p.Description = ""
	}

	switch {
	case p.FilePath != "":
		p.FileName = p.FilePath
	case p.LinkURL != "":
		p.FileName = p.LinkURL
		p.FileSize = 0
	}

	if p.Verdict == "" {
		p.Verdict = VerdictPending
	}
}

func PublicIDFor(id int) string {
	return fmt.Sprintf("ID%d", id)
}

type Statistic struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	ProjectIdea string    `json:"project_idea"`
	MetricName  string    `json:"metric_name"`
	MetricValue float64   `json:"metric_value"`
	RecordedAt  time.Time `json:"recorded_at"`
	Notes       string    `json:"notes"`
}

func (s *Statistic) String() string {
	return fmt.Sprintf("%s: %.2f (%s)", s.MetricName, s.MetricValue, s.ProjectIdea)
}
