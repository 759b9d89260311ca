package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	lerror "lula/error"
)

// Bundle is one observed-object feed document.
type Bundle struct {
	ID      string                `json:"id"`
	Objects []*ObjectHistoryEntry `json:"object_history"`
}

func Decode(r io.Reader) (*Bundle, error) {
	newBundle := new(Bundle)

	err := json.NewDecoder(r).Decode(newBundle)
	if err != nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrBundleDecode,
			Origin: err,
			Msg:    "error while decode bundle",
		}
	}
	return newBundle, nil
}

func ReadFile(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lerror.LulaGeneralError{
				Code:   lerror.InvalidArgumentError,
				Origin: err,
				Msg:    fmt.Sprintf("error while open bundle file[%s]", path),
			}
		}
		return nil, lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    fmt.Sprintf("error while open bundle file[%s]", path),
		}
	}
	defer file.Close()

	newBundle, err := Decode(file)
	if err != nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrBundleDecode,
			Origin: err,
			Msg:    fmt.Sprintf("error while read bundle file[%s]", path),
		}
	}
	return newBundle, nil
}

// IndicatorDocument is the output of one extraction run.
type IndicatorDocument struct {
	ProducedAt time.Time             `json:"produced_at"`
	Tool       string                `json:"tool"`
	Profile    string                `json:"profile,omitempty"`
	Indicators []*ObjectHistoryEntry `json:"indicators"`
}

func NewIndicatorDocument(tool string, profilePath string, indicators []*ObjectHistoryEntry) *IndicatorDocument {
	return &IndicatorDocument{
		ProducedAt: time.Now().UTC(),
		Tool:       tool,
		Profile:    profilePath,
		Indicators: indicators,
	}
}

func (d *IndicatorDocument) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(d)
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    "error while write indicator document",
		}
	}
	return nil
}

func (d *IndicatorDocument) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    fmt.Sprintf("error while create indicator file[%s]", path),
		}
	}
	defer file.Close()
	return d.Write(file)
}
