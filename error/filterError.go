package error

import "fmt"

type LulaErrFilter int

const (
	ErrFilterConstructor LulaErrFilter = iota
	ErrNilProfile
)

type LulaFilterError struct {
	Code   LulaErrFilter
	Origin error
	Msg    string
}

func (e LulaFilterError) Error() string {
	return fmt.Sprintf("Lula Filter Error: %s\n\t: %s", e.Msg, e.Origin.Error())
}
