package profile

import (
	lerror "lula/error"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PathExpr is the parsed form of one declared property path: "/"-separated
// segments rooted at a top-level property name. Segments carry no whitespace
// and no separator characters.
type PathExpr struct {
	Root string   `parser:"@Segment"`
	Rest []string `parser:"(\"/\" @Segment)*"`
}

func (p *PathExpr) Segments() []string {
	segments := make([]string, 0, len(p.Rest)+1)
	segments = append(segments, p.Root)
	segments = append(segments, p.Rest...)
	return segments
}

type Parser interface {
	PathParser() *participle.Parser[PathExpr]
}

type parser struct {
	pathParser *participle.Parser[PathExpr]
}

func (p *parser) PathParser() *participle.Parser[PathExpr] {
	return p.pathParser
}

var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Segment", Pattern: `[^/\s]+`},
	{Name: "Sep", Pattern: `/`},
})

func NewParser() (Parser, error) {
	var err error

	p := new(parser)

	p.pathParser, err = participle.Build[PathExpr](participle.Lexer(pathLexer))
	if err != nil {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrPathSyntax,
			Msg:    "Failed to build parser in PathParser",
			Origin: err,
		}
	}

	return p, nil
}
