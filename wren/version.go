package wren

// The version of the Wren language this package implements.
const (
	VersionMajor  = 0
	VersionMinor  = 4
	VersionPatch  = 0
	VersionString = "0.4.0"

	// VersionNumber is major*1_000_000 + minor*1_000 + patch.
	VersionNumber = VersionMajor*1_000_000 + VersionMinor*1_000 + VersionPatch
)

// GetVersionNumber returns [VersionNumber].
func GetVersionNumber() int { return VersionNumber }
