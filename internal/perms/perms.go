// perms.go normalizes ownership of the installation tree and socket
// directory for the service account.
package perms

import (
	"context"
	"fmt"
	"os/user"

	"github.com/example/stackup/internal/execx"
)

// Fix recursively chowns the given directories to owner:group. With
// verifyAccount set the account is resolved first so an unknown user fails
// before any ownership changes; dry-run passes false because the account is
// only created by an earlier step of a real run.
func Fix(ctx context.Context, r execx.Runner, owner, group string, verifyAccount bool, dirs ...string) error {
	if verifyAccount {
		if _, err := user.Lookup(owner); err != nil {
			if _, unknown := err.(user.UnknownUserError); unknown {
				return fmt.Errorf("service user %q does not exist", owner)
			}
			// Lookup can fail for other reasons (NSS misconfiguration); let
			// chown surface the authoritative answer.
		}
	}
	spec := owner + ":" + group
	for _, dir := range dirs {
		cmd := execx.Cmd{Name: "chown", Args: []string{"-R", spec, dir}}
		if err := r.Run(ctx, cmd); err != nil {
			return fmt.Errorf("chown %s: %w", dir, err)
		}
	}
	return nil
}
