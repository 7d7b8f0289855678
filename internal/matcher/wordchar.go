package matcher

import (
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// letters covers ASCII word characters plus the scripts a verse may be written in:
// Latin extended, Greek, Cyrillic, Hebrew, Arabic, Devanagari, kana and CJK ideographs.
// Polytonic Greek and Latin Extended Additional live in U+1E00-U+1FFF.
var letters = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: '0', Hi: '9', Stride: 1},
		{Lo: 'A', Hi: 'Z', Stride: 1},
		{Lo: '_', Hi: '_', Stride: 1},
		{Lo: 'a', Hi: 'z', Stride: 1},
		{Lo: 0x00C0, Hi: 0x02AF, Stride: 1},
		{Lo: 0x0370, Hi: 0x03FF, Stride: 1},
		{Lo: 0x0400, Hi: 0x04FF, Stride: 1},
		{Lo: 0x0590, Hi: 0x05FF, Stride: 1},
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0900, Hi: 0x097F, Stride: 1},
		{Lo: 0x1E00, Hi: 0x1FFF, Stride: 1},
		{Lo: 0x3040, Hi: 0x30FF, Stride: 1},
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
	},
	LatinOffset: 4,
}

// unsegmented scripts are written without spaces between words.
var unsegmented = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x30FF, Stride: 1},
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
	},
}

// wordChars also contains combining marks so a match cannot stop in the
// middle of a base letter and its accents.
var wordChars = rangetable.Merge(letters, unicode.Mn, unicode.Mc)

// IsWordRune reports whether r counts as part of a word.
func IsWordRune(r rune) bool {
	return unicode.Is(wordChars, r)
}

func isUnsegmented(r rune) bool {
	return unicode.Is(unsegmented, r)
}

// breaks reports whether the text rune next to a candidate match still leaves
// a word boundary, given the rune on the match's edge. A neighbour in an
// unsegmented script, or next to one, never extends the word.
func breaks(neighbour, edge rune) bool {
	if !IsWordRune(neighbour) {
		return true
	}
	return isUnsegmented(neighbour) || isUnsegmented(edge)
}
