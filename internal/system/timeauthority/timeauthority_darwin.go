package timeauthority

// New returns the command that turns off network time in System Settings.
func New() *Command {
	return &Command{Name: "systemsetup", Args: []string{"-setusingnetworktime", "off"}}
}
