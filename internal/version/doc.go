// Package version manages the timestamped version directories under a
// destination root.
//
// Every backup run creates exactly one version:
//
//	<destination root>/
//	├── 20260123_100712/
//	│   ├── .snapkeep/
//	│   │   ├── manifest.json
//	│   │   └── session.log
//	│   └── {backed up tree...}
//	└── 20260123_100712_01/   (second run within the same second)
//
// Names sort lexically in creation order: the timestamp is fixed width and
// the optional two-digit suffix only disambiguates runs started within the
// same second. Directories not matching the pattern are never touched.
//
// # Rotation
//
// [Manager.Rotate] keeps the newest versions up to a limit and removes the
// rest. Removal is best-effort per version: failures become [Warning]s and
// the remaining surplus versions are still processed.
package version
