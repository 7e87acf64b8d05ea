package update

import (
	"strings"

	"github.com/adamancini/clientsync/internal/types"
)

// Decide compares the remote tag with the installed one.
// Tags are opaque: after trimming whitespace they must match exactly, and any
// other case, including a missing local tag, is stale.
func Decide(remote, local string, present bool) types.Decision {
	if present && strings.TrimSpace(local) == strings.TrimSpace(remote) {
		return types.DecisionUpToDate
	}
	return types.DecisionStale
}
