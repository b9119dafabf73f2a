// Package paths provides cross-platform path resolution for snapkeep.
//
// The package wraps github.com/adrg/xdg for XDG Base Directory compliance.
// On Linux the configuration lives in ~/.config/snapkeep and versions are
// written to ~/.local/share/snapkeep/versions unless a destination is
// configured.
//
// [Resolve] turns user input ("~/docs", "./notes", "/srv/data") into the
// absolute, cleaned paths the backup engine requires.
package paths
