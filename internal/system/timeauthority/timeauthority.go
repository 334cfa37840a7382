// Package timeauthority turns off the operating system's own network time
// synchronization so it neither fights over the clock nor holds UDP port 123.
package timeauthority

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Command disables the platform time service by running an external tool. A
// Command without a Name does nothing.
type Command struct {
	Name string
	Args []string
	Run  RunFunc
}

func (c *Command) Disable(ctx context.Context) error {
	if c.Name == "" {
		return nil
	}
	run := c.Run
	if run == nil {
		run = runCommand
	}
	output, err := run(ctx, c.Name, c.Args...)
	if err != nil {
		return fmt.Errorf("failed to execute %s: %w: %s", c, err, bytes.TrimSpace(output))
	}
	return nil
}

func (c *Command) String() string {
	if c.Name == "" {
		return "none"
	}
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
