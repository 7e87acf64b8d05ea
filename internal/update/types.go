package update

import "context"

// Platform describes the current system platform
type Platform struct {
	OS   string // Operating system (darwin, linux, windows)
	Arch string // Architecture (amd64, arm64)
}

// VersionSource reports the latest published client version
type VersionSource interface {
	FetchLatestVersion(ctx context.Context) (string, error)
}

// VersionStore reads the version recorded by the installed client
type VersionStore interface {
	ReadInstalledVersion() (string, error)
}

// Fetcher downloads the client archive to a local path
type Fetcher interface {
	Download(ctx context.Context, url string, dst string) (int64, error)
}

// Installer replaces the install directory with the archive contents
type Installer interface {
	Install(archivePath, targetDir string) (*InstallReport, error)
}
