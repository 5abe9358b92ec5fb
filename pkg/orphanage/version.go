// Package orphanage holds module-wide build information.
package orphanage

// Version is the release version of the orphanage module and CLI.
const Version = "v0.1.0"
