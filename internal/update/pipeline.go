package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adamancini/clientsync/internal/config"
	"github.com/adamancini/clientsync/internal/ctxlog"
	"github.com/adamancini/clientsync/internal/types"
)

// Result summarizes one pipeline run
type Result struct {
	Stage         types.Stage         `json:"stage" yaml:"stage" toml:"stage"`
	Trail         []types.Stage       `json:"trail" yaml:"trail" toml:"trail"`
	Decision      types.Decision      `json:"decision,omitempty" yaml:"decision,omitempty" toml:"decision,omitempty"`
	Forced        bool                `json:"forced,omitempty" yaml:"forced,omitempty" toml:"forced,omitempty"`
	RemoteVersion string              `json:"remote_version,omitempty" yaml:"remote_version,omitempty" toml:"remote_version,omitempty"`
	LocalVersion  string              `json:"local_version,omitempty" yaml:"local_version,omitempty" toml:"local_version,omitempty"`
	LocalPresent  bool                `json:"local_present" yaml:"local_present" toml:"local_present"`
	ArchiveURL    string              `json:"archive_url,omitempty" yaml:"archive_url,omitempty" toml:"archive_url,omitempty"`
	Downloaded    int64               `json:"downloaded_bytes,omitempty" yaml:"downloaded_bytes,omitempty" toml:"downloaded_bytes,omitempty"`
	ArchiveFormat types.ArchiveFormat `json:"archive_format,omitempty" yaml:"archive_format,omitempty" toml:"archive_format,omitempty"`
	Warnings      []string            `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
	Error         string              `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`

	Tolerated []error `json:"-" yaml:"-" toml:"-"` // Soft failures folded into the run
	Err       error   `json:"-" yaml:"-" toml:"-"` // Hard failure, set when Stage is failed
}

func (r *Result) tolerate(err error) {
	r.Tolerated = append(r.Tolerated, err)
	r.Warnings = append(r.Warnings, err.Error())
}

// String renders the result for text output.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage:             %s\n", r.Stage)
	fmt.Fprintf(&b, "Remote version:    %s\n", orNone(r.RemoteVersion))
	if r.LocalPresent {
		fmt.Fprintf(&b, "Installed version: %s\n", orNone(r.LocalVersion))
	} else {
		fmt.Fprintf(&b, "Installed version: (none)\n")
	}
	if r.Decision != "" {
		fmt.Fprintf(&b, "Decision:          %s\n", r.Decision)
	}
	if r.ArchiveURL != "" {
		fmt.Fprintf(&b, "Archive:           %s (%d bytes)\n", r.ArchiveURL, r.Downloaded)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning:           %s\n", w)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:             %s\n", r.Error)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Status is the read-only outcome of Check
type Status struct {
	RemoteVersion string         `json:"remote_version" yaml:"remote_version" toml:"remote_version"`
	LocalVersion  string         `json:"local_version,omitempty" yaml:"local_version,omitempty" toml:"local_version,omitempty"`
	LocalPresent  bool           `json:"local_present" yaml:"local_present" toml:"local_present"`
	Decision      types.Decision `json:"decision" yaml:"decision" toml:"decision"`
	MarkerPath    string         `json:"marker_path" yaml:"marker_path" toml:"marker_path"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
}

// String renders the status for text output.
func (s *Status) String() string {
	installed := "(none)"
	if s.LocalPresent {
		installed = orNone(s.LocalVersion)
	}
	return fmt.Sprintf("Remote version:    %s\nInstalled version: %s\nMarker:            %s\nStatus:            %s",
		s.RemoteVersion, installed, s.MarkerPath, s.Decision)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Syncer runs the version check and, when stale, the download and install.
// Stages run one after another; nothing runs in parallel.
type Syncer struct {
	cfg       *config.Config
	versions  VersionSource
	store     VersionStore
	fetcher   Fetcher
	installer Installer
	observer  Observer
	platform  Platform
	force     bool
}

// NewSyncer creates a syncer with HTTP and filesystem collaborators built from cfg.
func NewSyncer(cfg *config.Config) *Syncer {
	return NewSyncerWithDeps(
		cfg,
		NewHTTPVersionClient(cfg.VersionURL).WithUserAgent(cfg.UserAgent),
		NewMarkerStore(cfg.InstallDir, cfg.MarkerFile),
		NewHTTPDownloader().WithUserAgent(cfg.UserAgent),
		NewArchiveInstaller().WithStripComponents(cfg.StripComponents),
	)
}

// NewSyncerWithDeps creates a syncer with custom collaborators (for testing).
func NewSyncerWithDeps(
	cfg *config.Config,
	versions VersionSource,
	store VersionStore,
	fetcher Fetcher,
	installer Installer,
) *Syncer {
	return &Syncer{
		cfg:       cfg,
		versions:  versions,
		store:     store,
		fetcher:   fetcher,
		installer: installer,
		observer:  nopObserver{},
		platform:  Detect(),
	}
}

// WithObserver sets the receiver of transition events
func (s *Syncer) WithObserver(o Observer) *Syncer {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
	return s
}

// WithForce reinstalls even when the local version is current
func (s *Syncer) WithForce(force bool) *Syncer {
	s.force = force
	return s
}

// WithPlatform overrides the platform used to expand the archive URL
func (s *Syncer) WithPlatform(p Platform) *Syncer {
	s.platform = p
	return s
}

// Run executes the pipeline once under the configured lock file.
// The returned Result is nil only when the lock could not be taken.
// Any hard failure is returned as the error and recorded in the Result.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	log := ctxlog.FromContext(ctx)

	lock, err := AcquireLock(s.cfg.LockPath())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release lock", "path", lock.Path(), "error", err)
		}
	}()
	log.Debug("lock acquired", "path", lock.Path())

	return s.run(ctx)
}

func (s *Syncer) run(ctx context.Context) (*Result, error) {
	log := ctxlog.FromContext(ctx)
	res := &Result{Stage: types.StageIdle, Trail: []types.Stage{types.StageIdle}}

	s.advance(ctx, res, types.StageQuerying, "Checking for client updates...", nil)

	remote, err := s.queryRemote(ctx)
	if err != nil {
		return s.fail(ctx, res, "Version check failed", err)
	}
	res.RemoteVersion = remote

	local, err := s.store.ReadInstalledVersion()
	switch {
	case err == nil:
		res.LocalPresent = true
		res.LocalVersion = strings.TrimSpace(local)
	case IsSoft(err):
		log.Debug("no installed version", "error", err)
		res.tolerate(err)
	default:
		return s.fail(ctx, res, "Version check failed", err)
	}

	res.Decision = Decide(remote, local, res.LocalPresent)
	if !res.Decision.IsStale() && !s.force {
		s.advance(ctx, res, types.StageUpToDate, fmt.Sprintf("Client is up to date (version %s)", remote), nil)
		return res, nil
	}
	res.Forced = !res.Decision.IsStale()
	s.advance(ctx, res, types.StageStale, staleMessage(res), nil)

	res.ArchiveURL = s.platform.ExpandURL(s.cfg.ArchiveURL, remote)
	s.advance(ctx, res, types.StageDownloading,
		fmt.Sprintf("Downloading client %s from %s...", remote, res.ArchiveURL), nil)

	n, err := s.download(ctx, res.ArchiveURL)
	res.Downloaded = n
	if err != nil {
		return s.fail(ctx, res, "Download failed", err)
	}
	log.Debug("archive downloaded", "path", s.cfg.ArchivePath, "bytes", n)

	s.advance(ctx, res, types.StageExtracting, fmt.Sprintf("Unzipping client to %s...", s.cfg.InstallDir), nil)

	report, err := s.installer.Install(s.cfg.ArchivePath, s.cfg.InstallDir)
	if report != nil {
		res.ArchiveFormat = report.Format
		for _, soft := range report.Tolerated {
			log.Warn("ignored cleanup failure", "error", soft)
			res.tolerate(soft)
		}
	}
	if err != nil {
		return s.fail(ctx, res, "Extraction failed", err)
	}

	if err := s.verifyMarker(remote); err != nil {
		return s.fail(ctx, res, "Extraction failed", err)
	}

	s.advance(ctx, res, types.StageDone, fmt.Sprintf("Done. Client updated to %s", remote), nil)
	return res, nil
}

// Check queries the remote version and compares it with the marker without
// downloading or touching the install directory.
func (s *Syncer) Check(ctx context.Context) (*Status, error) {
	remote, err := s.queryRemote(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		RemoteVersion: remote,
		MarkerPath:    s.cfg.MarkerPath(),
	}

	local, err := s.store.ReadInstalledVersion()
	switch {
	case err == nil:
		status.LocalPresent = true
		status.LocalVersion = strings.TrimSpace(local)
	case IsSoft(err):
		status.Warnings = append(status.Warnings, err.Error())
	default:
		return nil, err
	}

	status.Decision = Decide(remote, local, status.LocalPresent)
	return status, nil
}

func (s *Syncer) queryRemote(ctx context.Context) (string, error) {
	qctx, cancel := withTimeout(ctx, s.cfg.QueryTimeout.Std())
	defer cancel()
	return s.versions.FetchLatestVersion(qctx)
}

func (s *Syncer) download(ctx context.Context, url string) (int64, error) {
	dctx, cancel := withTimeout(ctx, s.cfg.DownloadTimeout.Std())
	defer cancel()
	return s.fetcher.Download(dctx, url, s.cfg.ArchivePath)
}

// verifyMarker checks that the freshly extracted marker names the remote version.
func (s *Syncer) verifyMarker(remote string) error {
	got, err := s.store.ReadInstalledVersion()
	if err != nil {
		return &ExtractionError{
			Archive: s.cfg.ArchivePath,
			Entry:   s.cfg.MarkerFile,
			Err:     fmt.Errorf("%w: %v", ErrMarkerMismatch, err),
		}
	}
	if strings.TrimSpace(got) != strings.TrimSpace(remote) {
		return &ExtractionError{
			Archive: s.cfg.ArchivePath,
			Entry:   s.cfg.MarkerFile,
			Err:     fmt.Errorf("%w: marker %q, remote %q", ErrMarkerMismatch, strings.TrimSpace(got), remote),
		}
	}
	return nil
}

func (s *Syncer) advance(ctx context.Context, res *Result, next types.Stage, msg string, err error) {
	from := res.Stage
	if !from.CanTransition(next) {
		panic(fmt.Sprintf("update: invalid transition %s -> %s", from, next))
	}

	res.Stage = next
	res.Trail = append(res.Trail, next)

	ctxlog.FromContext(ctx).Debug("stage transition", "from", from, "to", next)
	s.observer.Transition(Event{From: from, To: next, Message: msg, Err: err})
}

func (s *Syncer) fail(ctx context.Context, res *Result, what string, err error) (*Result, error) {
	res.Err = err
	res.Error = err.Error()
	s.advance(ctx, res, types.StageFailed, fmt.Sprintf("%s: %v", what, err), err)
	return res, err
}

func staleMessage(res *Result) string {
	switch {
	case !res.LocalPresent:
		return fmt.Sprintf("No installed version found; installing %s", res.RemoteVersion)
	case res.Forced:
		return fmt.Sprintf("Reinstalling client %s (forced)", res.RemoteVersion)
	default:
		return fmt.Sprintf("Client is out of date (installed %s, latest %s)", orNone(res.LocalVersion), res.RemoteVersion)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
