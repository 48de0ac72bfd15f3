package wkp

// Name is the tool name.
const Name = "wkp"

// Version information. Overridable at build time with
// -ldflags "-X github.com/mgaitan/wkp.Version=...".
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
