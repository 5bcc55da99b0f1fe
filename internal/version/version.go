package version

// Version is the CLI version, overridden at build time with -ldflags.
var Version = "0.1.0"
