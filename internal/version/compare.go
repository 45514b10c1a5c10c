package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CheckCompatibility checks current against a semver constraint such as ">= 1.2, < 2".
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - An empty constraint accepts every version
//   - If current is "dev" or "main" (development build), the check is skipped
//   - Otherwise current must satisfy the constraint
//
// Examples:
//   - Current 1.2.0, constraint "~1.2" -> OK
//   - Current 1.3.0, constraint "~1.2" -> ERROR
//   - Current dev, constraint ">= 9" -> OK (dev build, skip check)
func CheckCompatibility(current, constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}

	current = strings.TrimPrefix(current, "v")

	if current == "dev" || current == "main" {
		return nil
	}

	constraints, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid version constraint '%s'", constraint)
	}

	currentSemver, err := semver.NewVersion(current)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid version '%s'", current)
	}

	if !constraints.Check(currentSemver) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "version %s does not satisfy '%s'", currentSemver, constraint)
	}

	return nil
}
