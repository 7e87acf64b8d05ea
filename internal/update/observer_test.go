package update

import (
	"bytes"
	"errors"
	"testing"

	"github.com/adamancini/clientsync/internal/types"
)

func TestConsoleObserver(t *testing.T) {
	var out, errOut bytes.Buffer
	obs := NewConsoleObserver(&out, &errOut)

	obs.Transition(Event{From: types.StageIdle, To: types.StageQuerying, Message: "Checking for client updates..."})
	obs.Transition(Event{From: types.StageExtracting, To: types.StageDone, Message: "Client updated to 1.2.3"})
	obs.Transition(Event{From: types.StageDownloading, To: types.StageFailed, Message: "Download failed", Err: errors.New("boom")})
	obs.Transition(Event{From: types.StageQuerying, To: types.StageStale})

	wantOut := "Checking for client updates...\n✓ Client updated to 1.2.3\n"
	if out.String() != wantOut {
		t.Errorf("stdout = %q, want %q", out.String(), wantOut)
	}
	if errOut.String() != "✗ Download failed\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestObserverFunc(t *testing.T) {
	var got []types.Stage
	obs := ObserverFunc(func(e Event) { got = append(got, e.To) })

	obs.Transition(Event{To: types.StageQuerying})
	obs.Transition(Event{To: types.StageUpToDate})

	if len(got) != 2 || got[0] != types.StageQuerying || got[1] != types.StageUpToDate {
		t.Errorf("observed = %v", got)
	}
}
