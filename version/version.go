package version

// VERSION is the current version of the program.
const VERSION = "v0.1.0"

// GITCOMMIT is the git commit the binary was built from.
// It is injected at build time via -ldflags.
var GITCOMMIT = ""
