package changes

import (
	"fmt"

	"stagewise/internal/errors"
)

// Validate checks the change-set invariants: every path is non-empty and
// unique, counts are non-negative, and renames carry their old path.
func Validate(changes []GitChange) error {
	seen := make(map[string]int, len(changes))
	for i, c := range changes {
		field := fmt.Sprintf("changes[%d]", i)
		if c.Path == "" {
			return errors.NewValidationError(field+".path", "path is required")
		}
		if prev, dup := seen[c.Path]; dup {
			return errors.NewValidationError(field+".path",
				fmt.Sprintf("duplicate path %q (also at index %d)", c.Path, prev))
		}
		seen[c.Path] = i

		if !c.ChangeType.Valid() {
			return errors.NewValidationError(field+".changeType",
				fmt.Sprintf("unknown change type %q", c.ChangeType))
		}
		if c.Insertions < 0 || c.Deletions < 0 {
			return errors.NewValidationError(field, "insertions and deletions must be >= 0")
		}
		if c.ChangeType == Renamed && c.OldPath == "" {
			return errors.NewValidationError(field+".oldPath", "renamed change requires oldPath")
		}
	}
	return nil
}
