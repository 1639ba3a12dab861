package service

import "time"

// Timeout constants for service operations
const (
	// DefaultCommandTimeout bounds content processing and builds
	DefaultCommandTimeout = 15 * time.Minute
	// DefaultNetworkTimeout bounds pushes to the publish remote
	DefaultNetworkTimeout = 2 * time.Minute
	// KillGracePeriod is the delay between SIGTERM and SIGKILL on timeout
	KillGracePeriod = 5 * time.Second
	// stderrTailLines is the number of stderr lines kept for error messages
	stderrTailLines = 20
)

// NoJekyllFile disables Jekyll processing on GitHub Pages.
const NoJekyllFile = ".nojekyll"

// DeployEnvVar is exported to the build command.
const DeployEnvVar = "DEPLOY_ENV"
