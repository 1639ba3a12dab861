package domain

// DeploymentStatus is a snapshot of the repository relative to its last published tag.
type DeploymentStatus struct {
	CurrentTag            string `json:"currentTag,omitempty"`
	HasUnpublishedChanges bool   `json:"hasUnpublishedChanges"`
	Message               string `json:"message"`
}

// PublishResult is the outcome of publish and of preview start/stop.
type PublishResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
	URL     string `json:"url,omitempty"`
	Stage   Stage  `json:"stage,omitempty"`
}

// RollbackResult is the outcome of a rollback.
type RollbackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
	Stage   Stage  `json:"stage,omitempty"`
}

// PreviewStatus describes the preview session, if any.
type PreviewStatus struct {
	IsRunning bool   `json:"isRunning"`
	URL       string `json:"url,omitempty"`
	Port      int    `json:"port,omitempty"`
}

// TagSource names the listing strategy that produced a TagList.
type TagSource string

const (
	TagSourceLocal  TagSource = "local"
	TagSourceRemote TagSource = "remote"
)

// TagList holds tags newest first.
type TagList struct {
	Tags    []string  `json:"tags"`
	Source  TagSource `json:"source,omitempty"`
	Message string    `json:"message,omitempty"`
}

// DiffSummary counts the difference between two revisions.
type DiffSummary struct {
	FilesChanged int `json:"filesChanged"`
	Insertions   int `json:"insertions"`
	Deletions    int `json:"deletions"`
}

// HasChanges reports whether any file, insertion or deletion was counted.
func (d DiffSummary) HasChanges() bool {
	return d.FilesChanged > 0 || d.Insertions > 0 || d.Deletions > 0
}
