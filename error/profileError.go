package error

import "fmt"

type LulaErrProfile int

const (
	ErrInvalidProfile LulaErrProfile = iota
	ErrPathSyntax
	ErrInvalidPattern
	ErrDuplicatePath
	ErrUnsupportedObject
	ErrInvalidService
	ErrProfileWatch
)

type LulaProfileError struct {
	Code   LulaErrProfile
	Origin error
	Msg    string
}

func (e LulaProfileError) Error() string {
	return fmt.Sprintf("Lula Profile Error: %s\n\t: %s", e.Msg, e.Origin.Error())
}
