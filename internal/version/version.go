// Package version carries the module version reported to external
// systems and the CLI.
package version

// Version follows semver. Bump on release.
const Version = "0.1.0"
