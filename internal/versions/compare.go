package versions

import "github.com/Masterminds/semver/v3"

// IsNewerThanRunning reports whether recorded names a release newer than the
// running binary. Development builds and values that are not semantic
// versions never compare newer.
func IsNewerThanRunning(recorded string) bool {
	return isNewerThan(recorded, Version)
}

func isNewerThan(recorded, running string) bool {
	if running == "dev" {
		return false
	}
	recordedVersion, err := semver.NewVersion(recorded)
	if err != nil {
		return false
	}
	runningVersion, err := semver.NewVersion(running)
	if err != nil {
		return false
	}
	return recordedVersion.GreaterThan(runningVersion)
}
