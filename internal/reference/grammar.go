package reference

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// referenceAST is one parsed reference:
//
//	Book 3           whole chapter
//	Book 3:16        one verse
//	Book 3:16-18     verse range
//	Book 3-5         whole chapters
type referenceAST struct {
	Book       string `parser:"@Book"`
	Chapter    int    `parser:"@Number"`
	VerseStart *int   `parser:"( Colon @Number"`
	VerseEnd   *int   `parser:"  ( Dash @Number )?"`
	ChapterEnd *int   `parser:"| Dash @Number )?"`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Book names may carry a leading ordinal and span several words:
	// Gen, Gen., 1John, 1 John, 1. Mose, Song of Solomon, Römer.
	{Name: "Book", Pattern: `(?:\d\.?\s*)?\p{L}+(?:\s+\p{L}+)*\.?`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `[:,]`},
	{Name: "Dash", Pattern: `[-–—]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[referenceAST](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

func parseReference(input string) (*referenceAST, error) {
	ast, err := referenceParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference %q: %w", input, err)
	}
	return ast, nil
}
