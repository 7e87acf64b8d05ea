package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamancini/clientsync/internal/config"
	"github.com/adamancini/clientsync/internal/types"
)

// buildServer serves a version document and one client archive
type buildServer struct {
	*httptest.Server
	version     string
	archive     []byte
	archiveCode atomic.Int32
	versionCode atomic.Int32
	archiveHits atomic.Int32
	versionHits atomic.Int32
	lastArchive atomic.Value
}

func newBuildServer(t *testing.T, version string, archive []byte) *buildServer {
	t.Helper()

	s := &buildServer{version: version, archive: archive}
	s.archiveCode.Store(http.StatusOK)
	s.versionCode.Store(http.StatusOK)
	mux := http.NewServeMux()
	mux.HandleFunc("/version.json", func(w http.ResponseWriter, r *http.Request) {
		s.versionHits.Add(1)
		if code := int(s.versionCode.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"version": %q}`, s.version)
	})
	mux.HandleFunc("/builds/", func(w http.ResponseWriter, r *http.Request) {
		s.archiveHits.Add(1)
		s.lastArchive.Store(r.URL.Path)
		if code := int(s.archiveCode.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write(s.archive)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	root := t.TempDir()
	return &config.Config{
		VersionURL:      baseURL + "/version.json",
		ArchiveURL:      baseURL + "/builds/client-{version}-{os}-{arch}.zip",
		ArchivePath:     filepath.Join(root, "cache", "client.zip"),
		InstallDir:      filepath.Join(root, "client"),
		MarkerFile:      config.DefaultMarkerFile,
		QueryTimeout:    config.Duration(5 * time.Second),
		DownloadTimeout: config.Duration(30 * time.Second),
		UserAgent:       "clientsync-test",
	}
}

func writeMarker(t *testing.T, cfg *config.Config, content string) {
	t.Helper()
	if err := os.MkdirAll(cfg.InstallDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.MarkerPath(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// recorder captures every transition
type recorder struct {
	events []Event
}

func (r *recorder) Transition(e Event) { r.events = append(r.events, e) }

func (r *recorder) stages() []types.Stage {
	stages := []types.Stage{types.StageIdle}
	for _, e := range r.events {
		stages = append(stages, e.To)
	}
	return stages
}

func assertTrail(t *testing.T, got []types.Stage, want ...types.Stage) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trail = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trail = %v, want %v", got, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].CanTransition(got[i]) {
			t.Errorf("invalid transition %s -> %s", got[i-1], got[i])
		}
	}
}

var linux = Platform{OS: "linux", Arch: "amd64"}

func TestSyncerRun_UpToDate(t *testing.T) {
	srv := newBuildServer(t, "1.4.2", nil)
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "1.4.2\n")
	rec := &recorder{}

	res, err := NewSyncer(cfg).WithObserver(rec).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertTrail(t, res.Trail, types.StageIdle, types.StageQuerying, types.StageUpToDate)
	assertTrail(t, rec.stages(), res.Trail...)
	if res.Decision != types.DecisionUpToDate {
		t.Errorf("Decision = %s, want up-to-date", res.Decision)
	}
	if res.LocalVersion != "1.4.2" {
		t.Errorf("LocalVersion = %q, want trimmed 1.4.2", res.LocalVersion)
	}
	if srv.archiveHits.Load() != 0 {
		t.Error("no archive request expected when up to date")
	}
	if _, err := os.Stat(cfg.ArchivePath); !os.IsNotExist(err) {
		t.Error("archive should not be written when up to date")
	}
	if msg := rec.events[len(rec.events)-1].Message; !strings.Contains(msg, "up to date") {
		t.Errorf("final message = %q", msg)
	}
}

func TestSyncerRun_StaleInstallsNewVersion(t *testing.T) {
	archive := buildZip(t, clientBuild("1.5.0"))
	srv := newBuildServer(t, "1.5.0", archive)
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "1.4.2")
	if err := os.WriteFile(filepath.Join(cfg.InstallDir, "leftover.bin"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}

	res, err := NewSyncer(cfg).WithObserver(rec).WithPlatform(linux).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertTrail(t, res.Trail,
		types.StageIdle, types.StageQuerying, types.StageStale,
		types.StageDownloading, types.StageExtracting, types.StageDone)
	if res.Decision != types.DecisionStale {
		t.Errorf("Decision = %s, want stale", res.Decision)
	}
	if res.Downloaded != int64(len(archive)) {
		t.Errorf("Downloaded = %d, want %d", res.Downloaded, len(archive))
	}
	if res.ArchiveFormat != types.ArchiveZip {
		t.Errorf("ArchiveFormat = %s, want zip", res.ArchiveFormat)
	}
	if got, _ := srv.lastArchive.Load().(string); got != "/builds/client-1.5.0-linux-amd64.zip" {
		t.Errorf("archive path = %s", got)
	}

	if got := readFile(t, cfg.MarkerPath()); strings.TrimSpace(got) != "1.5.0" {
		t.Errorf("marker = %q, want 1.5.0", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.InstallDir, "leftover.bin")); !os.IsNotExist(err) {
		t.Error("previous install contents should be replaced")
	}
	if _, err := os.Stat(cfg.ArchivePath); err != nil {
		t.Errorf("archive should remain at %s: %v", cfg.ArchivePath, err)
	}

	messages := make([]string, 0, len(rec.events))
	for _, e := range rec.events {
		messages = append(messages, e.Message)
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{"installed 1.4.2, latest 1.5.0", "Downloading client 1.5.0", "Unzipping client to", "updated to 1.5.0"} {
		if !strings.Contains(joined, want) {
			t.Errorf("messages missing %q:\n%s", want, joined)
		}
	}
}

func TestSyncerRun_NoMarkerInstalls(t *testing.T) {
	srv := newBuildServer(t, "2.0.0", buildTarGz(t, clientBuild("2.0.0")))
	cfg := newTestConfig(t, srv.URL)

	res, err := NewSyncer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stage != types.StageDone {
		t.Fatalf("Stage = %s, want done", res.Stage)
	}
	if res.LocalPresent {
		t.Error("LocalPresent should be false without a marker")
	}
	if len(res.Tolerated) != 1 {
		t.Fatalf("Tolerated = %v, want the missing marker", res.Tolerated)
	}
	var missing *MissingMarkerError
	if !errors.As(res.Tolerated[0], &missing) {
		t.Errorf("Tolerated[0] = %T, want *MissingMarkerError", res.Tolerated[0])
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if res.ArchiveFormat != types.ArchiveTarGz {
		t.Errorf("ArchiveFormat = %s, want tar.gz", res.ArchiveFormat)
	}
}

func TestSyncerRun_VersionQueryFails(t *testing.T) {
	srv := newBuildServer(t, "2.0.0", nil)
	srv.versionCode.Store(http.StatusServiceUnavailable)
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "1.0.0")
	rec := &recorder{}

	res, err := NewSyncer(cfg).WithObserver(rec).Run(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if netErr.Op != "query" {
		t.Errorf("Op = %s, want query", netErr.Op)
	}
	assertTrail(t, res.Trail, types.StageIdle, types.StageQuerying, types.StageFailed)
	if res.Err != err || res.Error == "" {
		t.Errorf("result should record the failure, got Err=%v Error=%q", res.Err, res.Error)
	}
	if last := rec.events[len(rec.events)-1]; last.Err == nil {
		t.Error("failed event should carry the error")
	}

	// Nothing on disk is touched.
	if got := readFile(t, cfg.MarkerPath()); got != "1.0.0" {
		t.Errorf("marker = %q, want untouched", got)
	}
	if srv.archiveHits.Load() != 0 {
		t.Error("archive must not be requested after a failed query")
	}
}

func TestSyncerRun_VersionServerUnreachable(t *testing.T) {
	srv := newBuildServer(t, "2.0.0", nil)
	cfg := newTestConfig(t, srv.URL)
	srv.Close()

	res, err := NewSyncer(cfg).Run(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if res.Stage != types.StageFailed {
		t.Errorf("Stage = %s, want failed", res.Stage)
	}
	if _, err := os.Stat(cfg.InstallDir); !os.IsNotExist(err) {
		t.Error("install directory should not be created")
	}
}

func TestSyncerRun_DownloadFails(t *testing.T) {
	srv := newBuildServer(t, "3.0.0", nil)
	srv.archiveCode.Store(http.StatusNotFound)
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "2.9.0")

	res, err := NewSyncer(cfg).Run(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if netErr.Op != "download" || netErr.StatusCode != http.StatusNotFound {
		t.Errorf("NetworkError = %+v", netErr)
	}
	assertTrail(t, res.Trail,
		types.StageIdle, types.StageQuerying, types.StageStale,
		types.StageDownloading, types.StageFailed)

	// The previous install survives a failed download.
	if got := readFile(t, cfg.MarkerPath()); got != "2.9.0" {
		t.Errorf("marker = %q, want previous install kept", got)
	}
}

func TestSyncerRun_ExtractionFails(t *testing.T) {
	srv := newBuildServer(t, "3.0.0", []byte("<html>maintenance</html>"))
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "2.9.0")

	res, err := NewSyncer(cfg).Run(context.Background())

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
	assertTrail(t, res.Trail,
		types.StageIdle, types.StageQuerying, types.StageStale,
		types.StageDownloading, types.StageExtracting, types.StageFailed)
}

func TestSyncerRun_MarkerMismatchAfterInstall(t *testing.T) {
	// The published archive lags behind the version endpoint.
	srv := newBuildServer(t, "5.0.0", buildZip(t, clientBuild("4.9.0")))
	cfg := newTestConfig(t, srv.URL)

	res, err := NewSyncer(cfg).Run(context.Background())

	if !errors.Is(err, ErrMarkerMismatch) {
		t.Fatalf("error = %v, want ErrMarkerMismatch", err)
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("error = %T, want *ExtractionError", err)
	}
	if res.Stage != types.StageFailed {
		t.Errorf("Stage = %s, want failed", res.Stage)
	}
}

func TestSyncerRun_SecondRunIsUpToDate(t *testing.T) {
	srv := newBuildServer(t, "7.1", buildTarXz(t, clientBuild("7.1")))
	cfg := newTestConfig(t, srv.URL)

	first, err := NewSyncer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.Stage != types.StageDone {
		t.Fatalf("first Stage = %s, want done", first.Stage)
	}

	second, err := NewSyncer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Stage != types.StageUpToDate {
		t.Errorf("second Stage = %s, want up-to-date", second.Stage)
	}
	if srv.archiveHits.Load() != 1 {
		t.Errorf("archive requested %d times, want 1", srv.archiveHits.Load())
	}
}

func TestSyncerRun_Force(t *testing.T) {
	srv := newBuildServer(t, "1.0", buildZip(t, clientBuild("1.0")))
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "1.0")

	res, err := NewSyncer(cfg).WithForce(true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stage != types.StageDone {
		t.Errorf("Stage = %s, want done", res.Stage)
	}
	if !res.Forced {
		t.Error("Forced should be set when reinstalling a current version")
	}
	if res.Decision != types.DecisionUpToDate {
		t.Errorf("Decision = %s, want the comparison result kept", res.Decision)
	}
	if srv.archiveHits.Load() != 1 {
		t.Errorf("archive requested %d times, want 1", srv.archiveHits.Load())
	}
}

func TestSyncerRun_Locked(t *testing.T) {
	srv := newBuildServer(t, "1.0", nil)
	cfg := newTestConfig(t, srv.URL)

	held, err := AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer func() { _ = held.Release() }()

	res, err := NewSyncer(cfg).Run(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("error = %v, want ErrLocked", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil when locked", res)
	}
	if srv.versionHits.Load() != 0 {
		t.Error("version endpoint must not be queried while locked")
	}
}

func TestSyncerRun_ReleasesLock(t *testing.T) {
	srv := newBuildServer(t, "1.0", nil)
	cfg := newTestConfig(t, srv.URL)
	writeMarker(t, cfg, "1.0")

	if _, err := NewSyncer(cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lock, err := AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("lock should be free after Run: %v", err)
	}
	_ = lock.Release()
}

func TestSyncerRun_QueryTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	cfg := newTestConfig(t, slow.URL)
	cfg.QueryTimeout = config.Duration(50 * time.Millisecond)

	res, err := NewSyncer(cfg).Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if res.Stage != types.StageFailed {
		t.Errorf("Stage = %s, want failed", res.Stage)
	}
}

// stubs for exercising the pipeline without HTTP or archives

type stubSource struct {
	version string
	err     error
}

func (s stubSource) FetchLatestVersion(context.Context) (string, error) { return s.version, s.err }

type stubStore struct {
	version string
	err     error
}

func (s *stubStore) ReadInstalledVersion() (string, error) { return s.version, s.err }

type stubFetcher struct {
	calls int
	err   error
}

func (f *stubFetcher) Download(_ context.Context, _, dst string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 3, os.WriteFile(dst, []byte("zip"), 0644)
}

// stubInstaller writes the marker it is given into the store
type stubInstaller struct {
	store     *stubStore
	installed string
	tolerated []error
}

func (i *stubInstaller) Install(_, _ string) (*InstallReport, error) {
	i.store.version, i.store.err = i.installed, nil
	return &InstallReport{Format: types.ArchiveZip, Entries: 1, Tolerated: i.tolerated}, nil
}

func TestSyncerRun_DeletionFailureIsWarning(t *testing.T) {
	cfg := newTestConfig(t, "http://unused.invalid")
	store := &stubStore{version: "1"}
	installer := &stubInstaller{
		store:     store,
		installed: "2",
		tolerated: []error{&DeletionError{Path: cfg.InstallDir, Err: os.ErrPermission}},
	}

	res, err := NewSyncerWithDeps(cfg, stubSource{version: "2"}, store, &stubFetcher{}, installer).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stage != types.StageDone {
		t.Errorf("Stage = %s, want done", res.Stage)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "failed to remove") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestSyncerRun_HardStoreError(t *testing.T) {
	cfg := newTestConfig(t, "http://unused.invalid")
	boom := errors.New("disk on fire")
	store := &stubStore{err: boom}
	fetcher := &stubFetcher{}

	res, err := NewSyncerWithDeps(cfg, stubSource{version: "2"}, store, fetcher, &stubInstaller{store: store}).
		Run(context.Background())

	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if res.Stage != types.StageFailed {
		t.Errorf("Stage = %s, want failed", res.Stage)
	}
	if fetcher.calls != 0 {
		t.Error("download must not start after a hard marker failure")
	}
}

func TestSyncerRun_WhitespaceOnlyDifference(t *testing.T) {
	cfg := newTestConfig(t, "http://unused.invalid")
	store := &stubStore{version: "  3.2.1\r\n"}
	fetcher := &stubFetcher{}

	res, err := NewSyncerWithDeps(cfg, stubSource{version: "3.2.1"}, store, fetcher, &stubInstaller{store: store}).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stage != types.StageUpToDate {
		t.Errorf("Stage = %s, want up-to-date", res.Stage)
	}
	if fetcher.calls != 0 {
		t.Error("no download expected")
	}
}

func TestSyncerCheck(t *testing.T) {
	tests := []struct {
		name        string
		remote      string
		marker      *string
		wantStale   bool
		wantPresent bool
	}{
		{"current", "1.0", strPtr("1.0\n"), false, true},
		{"outdated", "1.1", strPtr("1.0"), true, true},
		{"missing marker", "1.0", nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newBuildServer(t, tt.remote, nil)
			cfg := newTestConfig(t, srv.URL)
			if tt.marker != nil {
				writeMarker(t, cfg, *tt.marker)
			}

			status, err := NewSyncer(cfg).Check(context.Background())
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if status.Decision.IsStale() != tt.wantStale {
				t.Errorf("Decision = %s, stale want %v", status.Decision, tt.wantStale)
			}
			if status.LocalPresent != tt.wantPresent {
				t.Errorf("LocalPresent = %v, want %v", status.LocalPresent, tt.wantPresent)
			}
			if status.MarkerPath != cfg.MarkerPath() {
				t.Errorf("MarkerPath = %s", status.MarkerPath)
			}
			if !strings.Contains(status.String(), tt.remote) {
				t.Errorf("String() = %q, want remote version", status.String())
			}
			if srv.archiveHits.Load() != 0 {
				t.Error("Check must not download")
			}
		})
	}
}

func TestSyncerCheck_QueryError(t *testing.T) {
	srv := newBuildServer(t, "", nil)
	cfg := newTestConfig(t, srv.URL)

	_, err := NewSyncer(cfg).Check(context.Background())
	if !errors.Is(err, ErrEmptyVersion) {
		t.Errorf("error = %v, want ErrEmptyVersion", err)
	}
}

func TestResultString(t *testing.T) {
	res := &Result{
		Stage:         types.StageFailed,
		RemoteVersion: "2.0",
		Decision:      types.DecisionStale,
		Warnings:      []string{"version marker unavailable"},
		Error:         "download failed",
	}

	out := res.String()
	for _, want := range []string{"failed", "2.0", "(none)", "stale", "version marker unavailable", "download failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}

func strPtr(s string) *string { return &s }
