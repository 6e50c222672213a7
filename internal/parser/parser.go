// Package parser turns Brainfuck source bytes into an ast.Program, fusing
// consecutive +/- and </> runs inline with recognition and reporting
// UnclosedLoop/ExtraCloseLoop diagnostics with a display-width source
// location.
package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"bfoptc/internal/ast"
	"bfoptc/internal/bferr"
)

// Parser scans Brainfuck source and builds an ast.Program.
type Parser struct {
	src   string
	pos   int // byte offset into src
	line  int // 1-based
	col   int // 1-based, display-width column
	lines []string
}

// New creates a Parser over source.
func New(source string) *Parser {
	return &Parser{
		src:   source,
		line:  1,
		col:   1,
		lines: strings.Split(source, "\n"),
	}
}

// Parse parses source, which accepts only the seven Brainfuck commands;
// every other byte is commentary and discarded. Loops recurse: a loop's
// body is fully parsed before the enclosing Loop node is pushed.
func Parse(source []byte) (ast.Program, error) {
	return New(string(source)).Parse()
}

// Parse runs the parser to completion.
func (p *Parser) Parse() (ast.Program, error) {
	return p.parseBody(nil)
}

// openLoop records where the '[' that began the body currently being parsed
// was found, so an EOF inside it reports that position rather than EOF's.
type openLoop struct {
	line, col int
}

func (p *Parser) parseBody(open *openLoop) (ast.Program, error) {
	var prog ast.Program
	var pendingAdd int32
	var pendingShift int32

	flushAdd := func() {
		if pendingAdd != 0 {
			prog = append(prog, ast.Add{Delta: pendingAdd})
		}
		pendingAdd = 0
	}
	flushShift := func() {
		if pendingShift != 0 {
			prog = append(prog, ast.Shift{Delta: pendingShift})
		}
		pendingShift = 0
	}

	for {
		r, ok := p.peek()
		if !ok {
			if open != nil {
				return nil, bferr.NewUnclosedLoop(open.line, open.col, p.lineText(open.line))
			}
			flushAdd()
			flushShift()
			return prog, nil
		}

		switch r {
		case '+':
			flushShift()
			pendingAdd++
			p.advance()
		case '-':
			flushShift()
			pendingAdd--
			p.advance()
		case '>':
			flushAdd()
			pendingShift++
			p.advance()
		case '<':
			flushAdd()
			pendingShift--
			p.advance()
		case ',':
			flushAdd()
			flushShift()
			prog = append(prog, ast.Input{})
			p.advance()
		case '.':
			flushAdd()
			flushShift()
			prog = append(prog, ast.Output{})
			p.advance()
		case '[':
			flushAdd()
			flushShift()
			loopLine, loopCol := p.line, p.col
			p.advance()
			body, err := p.parseBody(&openLoop{line: loopLine, col: loopCol})
			if err != nil {
				return nil, err
			}
			prog = append(prog, ast.Loop{Body: body})
		case ']':
			if open == nil {
				return nil, bferr.NewExtraCloseLoop(p.line, p.col, p.lineText(p.line))
			}
			flushAdd()
			flushShift()
			p.advance()
			return prog, nil
		default:
			p.advance()
		}
	}
}

// peek returns the next rune without consuming it.
func (p *Parser) peek() (rune, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r, true
}

// advance consumes one rune, updating line/column. Column tracks display
// width (wide/fullwidth runes count as 2) so diagnostic carets line up on
// terminals even when commentary contains CJK text.
func (p *Parser) advance() {
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
		return
	}
	p.col += displayWidth(r)
}

func displayWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

func (p *Parser) lineText(line int) string {
	if line >= 1 && line <= len(p.lines) {
		return p.lines[line-1]
	}
	return ""
}
