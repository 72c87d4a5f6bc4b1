package keys

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleNumber     = lexer.SimpleRule{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|[0-9][0-9a-fA-F]*`}
	ruleIdent      = lexer.SimpleRule{Name: "Ident", Pattern: `[A-Za-z_][\w\-]*`}
	rulePunct      = lexer.SimpleRule{Name: "Punct", Pattern: `[+():#,]`}
	ruleWhitespace = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
)

var expressionLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleNumber,
	ruleIdent,
	rulePunct,
})

var expressionParser = participle.MustBuild[Expression](
	participle.Lexer(expressionLexer),
	participle.UseLookahead(2),
	participle.Elide(ruleWhitespace.Name),
)

// Expression is a single device or action name string:
//
//	A, Ctrl+Shift+A, MouseLeft, MoveUp, ScrollDown, 0x41
//	Gamepad(045e):A+RB, Joystick(046d):LSUp, HID(01,05)#3, Gamepad(045e)#7
type Expression struct {
	Controller *ControllerExpression `parser:"  @@" json:"controller,omitempty"`
	Chord      *ChordExpression      `parser:"| @@" json:"chord,omitempty"`
}

type ControllerExpression struct {
	Kind   string           `parser:"@('Gamepad' | 'Joystick' | 'HID')" json:"kind"`
	Args   []string         `parser:"'(' @Number (',' @Number)* ')'" json:"args"`
	Target ControllerTarget `parser:"@@" json:"target"`
}

type ControllerTarget struct {
	Buttons []string `parser:"  ':' @(Ident | Number) ('+' @(Ident | Number))*" json:"buttons,omitempty"`
	Button  *string  `parser:"| '#' @Number" json:"button,omitempty"`
}

type ChordExpression struct {
	Names []string `parser:"@(Ident | Number) ('+' @(Ident | Number))*" json:"names"`
}

func ParseExpression(s string) (*Expression, error) {
	return expressionParser.ParseString("", s)
}
