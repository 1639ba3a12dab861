package repository

import "github.com/spf13/afero"

// FileSystemRepository is the filesystem seen by build cleanup, output
// checks and the journal. Production code uses afero.NewOsFs.
type FileSystemRepository interface {
	afero.Fs
}
