//go:build !windows

package executor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Users lists account names from /etc/passwd.
func (e *Executor) Users() ([]string, error) {
	f, err := os.Open("/etc/passwd")
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, ":", 2)
		if len(fields) > 0 && fields[0] != "" {
			names = append(names, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	return names, nil
}
