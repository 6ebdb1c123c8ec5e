// Package version reports the release of hybrid-channel and the protocol
// version it speaks.
package version

import (
	"fmt"

	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
)

// Semantic version components.
const (
	// Major is the major version (breaking changes).
	Major = 0
	// Minor is the minor version (new features).
	Minor = 1
	// Patch is the patch version (bug fixes).
	Patch = 0
	// Label is the optional pre-release label.
	Label = ""
)

// Commit is the VCS revision, set with -ldflags "-X .../pkg/version.Commit=...".
var Commit = ""

// String returns the full version string.
func String() string {
	v := fmt.Sprintf("v%d.%d.%d", Major, Minor, Patch)
	if Label != "" {
		v += "-" + Label
	}
	return v
}

// Full returns a descriptive version string.
func Full() string {
	s := fmt.Sprintf("hybrid-channel %s (protocol %d)", String(), protocol.Current)
	if Commit != "" {
		s += " commit " + Commit
	}
	return s
}
