package livemd

import _ "embed"

// Version is the release of the runtime, read from the VERSION file.
//
//go:embed VERSION
var Version string
