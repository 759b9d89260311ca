package error

import "fmt"

type LulaErrGeneral int

const (
	SystemError LulaErrGeneral = iota
	InputError
	InvalidOperationError
	InvalidArgumentError
	InvalidStateError
)

type LulaGeneralError struct {
	Code   LulaErrGeneral
	Origin error
	Msg    string
}

func (e LulaGeneralError) Error() string {
	return fmt.Sprintf("Lula General Error: %s\n\t: %s", e.Msg, e.Origin.Error())
}
