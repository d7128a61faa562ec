package migratecmd

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	upgradeMessageType   = "grc.migrate.upgrade"
	downgradeMessageType = "grc.migrate.downgrade"
	stampMessageType     = "grc.migrate.stamp"
)

var (
	revisionPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	relativePattern = regexp.MustCompile(`^-[1-9][0-9]*$`)
)

// UpgradeCommand applies episodes up to Target. An empty Target means head.
type UpgradeCommand struct {
	Target string `json:"target,omitempty"`
}

// Type implements command.Message.
func (UpgradeCommand) Type() string { return upgradeMessageType }

// Validate rejects targets that cannot name a revision.
func (cmd UpgradeCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Target, validation.By(func(value any) error {
			target := strings.TrimSpace(value.(string))
			if target == "" || revisionPattern.MatchString(target) {
				return nil
			}
			return validation.NewError("grc.migrate.upgrade.target_invalid", "target must be a revision or head")
		})),
	)
}

// DowngradeCommand reverts episodes down to Target: a revision, `base`, or
// a relative step such as `-1`.
type DowngradeCommand struct {
	Target string `json:"target"`
}

// Type implements command.Message.
func (DowngradeCommand) Type() string { return downgradeMessageType }

// Validate ensures a target is present and well formed.
func (cmd DowngradeCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Target, validation.Required, validation.By(func(value any) error {
			target := strings.TrimSpace(value.(string))
			if revisionPattern.MatchString(target) || relativePattern.MatchString(target) {
				return nil
			}
			return validation.NewError("grc.migrate.downgrade.target_invalid", "target must be a revision, base or -N")
		})),
	)
}

// StampCommand moves the head pointer without running episodes.
type StampCommand struct {
	Revision string `json:"revision"`
}

// Type implements command.Message.
func (StampCommand) Type() string { return stampMessageType }

// Validate ensures a revision is present.
func (cmd StampCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Revision, validation.Required, validation.Match(revisionPattern)),
	)
}
