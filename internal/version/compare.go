package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConstraint reports whether engineVersion satisfies constraint, a semver
// range such as "~1.0" or ">= 1.2, < 2".
//
// An empty constraint always passes. A "main" engine version is a development
// build and skips the check.
func CheckConstraint(engineVersion, constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}

	engineVersion = strings.TrimPrefix(engineVersion, "v")
	if engineVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint '%s': %w", constraint, err)
	}

	if ok, reasons := c.Validate(engineSemver); !ok {
		msgs := make([]string, len(reasons))
		for i, reason := range reasons {
			msgs[i] = reason.Error()
		}

		return fmt.Errorf("engine version %s does not satisfy '%s': %s", engineSemver, constraint, strings.Join(msgs, "; "))
	}

	return nil
}

// CheckCurrent checks constraint against the running engine version.
func CheckCurrent(constraint string) error {
	return CheckConstraint(Version, constraint)
}
