package timeauthority

// New returns the command that stops systemd-timesyncd.
func New() *Command {
	return &Command{Name: "timedatectl", Args: []string{"set-ntp", "false"}}
}
