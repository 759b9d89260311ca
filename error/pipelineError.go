package error

import "fmt"

type LulaErrPipeline int

const (
	ErrBundleDecode LulaErrPipeline = iota
	ErrExporterCreate
	ErrWatcherCreate
	ErrServiceCreate
	ErrServiceState
)

type LulaPipelineError struct {
	Code   LulaErrPipeline
	Origin error
	Msg    string
}

func (e LulaPipelineError) Error() string {
	return fmt.Sprintf("Lula Pipeline Error: %s\n\t: %s", e.Msg, e.Origin.Error())
}
