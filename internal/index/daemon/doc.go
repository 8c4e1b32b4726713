// Package daemon keeps a local catalog index fresh in the background.
//
// A Daemon re-runs the sync pipeline for the primary catalog and each
// auxiliary catalog:
//
//   - once on start
//   - on every Config.Interval tick
//   - after changes to a local catalog mirror settle, when Config.MirrorDir is set
//
// Refresh failures are logged and counted; the daemon keeps running until
// its context is cancelled. Each update is atomic, so a failed refresh leaves
// the index at its last committed state.
//
// # Mirrors
//
// A mirror is a directory tree of catalog JSON files, typically kept current
// by an external rsync or git job, with the primary URL pointing into it:
//
//	cfg := daemon.DefaultConfig()
//	cfg.MirrorDir = "/srv/door43-mirror"
//	cfg.PrimaryURL = fetch.FileURL("/srv/door43-mirror/ts/txt/2/catalog.json")
//
// FileWatcher watches the whole tree with fsnotify, adding subdirectories as
// they are created. Writes are debounced: a refresh starts once no *.json
// file has changed for Config.Debounce.
package daemon
