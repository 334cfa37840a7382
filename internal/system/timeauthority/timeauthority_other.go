//go:build !linux && !darwin

package timeauthority

func New() *Command {
	return &Command{}
}
