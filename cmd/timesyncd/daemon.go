package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/sevlyar/go-daemon"
)

const daemonName = "timesyncd"

var daemonCtx = &daemon.Context{
	PidFileName: fmt.Sprintf("/var/run/%s.pid", daemonName),
	PidFilePerm: 0644,
	LogFileName: fmt.Sprintf("/var/log/%s.log", daemonName),
	LogFilePerm: 0640,
	WorkDir:     "/",
	Umask:       027,
	Args:        append([]string{daemonName}, os.Args[1:]...),
}

func killDaemon() error {
	d, err := daemonCtx.Search()
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", daemonName, err)
	}
	if d == nil {
		return fmt.Errorf("%s is not running", daemonName)
	}
	if err := syscall.Kill(d.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop %s (%d): %w", daemonName, d.Pid, err)
	}
	return nil
}
