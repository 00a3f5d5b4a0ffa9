//go:build windows

package executor

import (
	"fmt"
	"os/user"
)

// Users returns the current user only: Windows has no equivalent of
// /etc/passwd to enumerate without additional privileges.
func (e *Executor) Users() ([]string, error) {
	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	return []string{u.Username}, nil
}
