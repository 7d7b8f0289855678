package reference

import (
	"strings"

	"golang.org/x/text/cases"
)

// CanonicalBooks is the Protestant 66-book order used for references and for
// sorting search results.
var CanonicalBooks = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy", "Joshua", "Judges", "Ruth",
	"1 Samuel", "2 Samuel", "1 Kings", "2 Kings", "1 Chronicles", "2 Chronicles",
	"Ezra", "Nehemiah", "Esther", "Job", "Psalms", "Proverbs", "Ecclesiastes", "Song of Solomon",
	"Isaiah", "Jeremiah", "Lamentations", "Ezekiel", "Daniel", "Hosea", "Joel", "Amos",
	"Obadiah", "Jonah", "Micah", "Nahum", "Habakkuk", "Zephaniah", "Haggai", "Zechariah", "Malachi",
	"Matthew", "Mark", "Luke", "John", "Acts", "Romans", "1 Corinthians", "2 Corinthians",
	"Galatians", "Ephesians", "Philippians", "Colossians", "1 Thessalonians", "2 Thessalonians",
	"1 Timothy", "2 Timothy", "Titus", "Philemon", "Hebrews", "James", "1 Peter", "2 Peter",
	"1 John", "2 John", "3 John", "Jude", "Revelation",
}

// osisAbbrevs maps canonical names to their OSIS abbreviations.
var osisAbbrevs = map[string]string{
	"Genesis": "Gen", "Exodus": "Exod", "Leviticus": "Lev", "Numbers": "Num", "Deuteronomy": "Deut",
	"Joshua": "Josh", "Judges": "Judg", "Ruth": "Ruth", "1 Samuel": "1Sam", "2 Samuel": "2Sam",
	"1 Kings": "1Kgs", "2 Kings": "2Kgs", "1 Chronicles": "1Chr", "2 Chronicles": "2Chr",
	"Ezra": "Ezra", "Nehemiah": "Neh", "Esther": "Esth", "Job": "Job", "Psalms": "Ps",
	"Proverbs": "Prov", "Ecclesiastes": "Eccl", "Song of Solomon": "Song", "Isaiah": "Isa",
	"Jeremiah": "Jer", "Lamentations": "Lam", "Ezekiel": "Ezek", "Daniel": "Dan", "Hosea": "Hos",
	"Joel": "Joel", "Amos": "Amos", "Obadiah": "Obad", "Jonah": "Jonah", "Micah": "Mic",
	"Nahum": "Nah", "Habakkuk": "Hab", "Zephaniah": "Zeph", "Haggai": "Hag", "Zechariah": "Zech",
	"Malachi": "Mal", "Matthew": "Matt", "Mark": "Mark", "Luke": "Luke", "John": "John",
	"Acts": "Acts", "Romans": "Rom", "1 Corinthians": "1Cor", "2 Corinthians": "2Cor",
	"Galatians": "Gal", "Ephesians": "Eph", "Philippians": "Phil", "Colossians": "Col",
	"1 Thessalonians": "1Thess", "2 Thessalonians": "2Thess", "1 Timothy": "1Tim", "2 Timothy": "2Tim",
	"Titus": "Titus", "Philemon": "Phlm", "Hebrews": "Heb", "James": "Jas", "1 Peter": "1Pet",
	"2 Peter": "2Pet", "1 John": "1John", "2 John": "2John", "3 John": "3John", "Jude": "Jude",
	"Revelation": "Rev",
}

// extraAbbrevs are common short forms that prefix matching would resolve
// wrongly or not at all. Keys are in bookKey form.
var extraAbbrevs = map[string]string{
	"gn": "Genesis", "ge": "Genesis", "ex": "Exodus", "exo": "Exodus", "lv": "Leviticus",
	"nu": "Numbers", "dt": "Deuteronomy", "jos": "Joshua", "jdg": "Judges", "rt": "Ruth",
	"1sa": "1 Samuel", "2sa": "2 Samuel", "1ki": "1 Kings", "2ki": "2 Kings",
	"1ch": "1 Chronicles", "2ch": "2 Chronicles", "ne": "Nehemiah", "est": "Esther",
	"jb": "Job", "psa": "Psalms", "psalm": "Psalms", "pss": "Psalms", "pr": "Proverbs",
	"prv": "Proverbs", "ec": "Ecclesiastes", "qoh": "Ecclesiastes", "sos": "Song of Solomon",
	"canticles": "Song of Solomon", "is": "Isaiah", "eze": "Ezekiel", "dn": "Daniel",
	"jl": "Joel", "am": "Amos", "ob": "Obadiah", "jnh": "Jonah", "na": "Nahum",
	"zep": "Zephaniah", "zec": "Zechariah", "mt": "Matthew", "mk": "Mark", "mr": "Mark",
	"lk": "Luke", "jn": "John", "jhn": "John", "ac": "Acts", "ro": "Romans",
	"1co": "1 Corinthians", "2co": "2 Corinthians", "php": "Philippians", "1th": "1 Thessalonians",
	"2th": "2 Thessalonians", "1ti": "1 Timothy", "2ti": "2 Timothy", "tit": "Titus",
	"phm": "Philemon", "jm": "James", "1pe": "1 Peter", "2pe": "2 Peter", "1jn": "1 John",
	"2jn": "2 John", "3jn": "3 John", "re": "Revelation", "apoc": "Revelation",
	// German short forms, for versions like Schlachter.
	"1mo": "Genesis", "1mose": "Genesis", "2mo": "Exodus", "2mose": "Exodus",
	"3mo": "Leviticus", "3mose": "Leviticus", "4mo": "Numbers", "4mose": "Numbers",
	"5mo": "Deuteronomy", "5mose": "Deuteronomy", "jes": "Isaiah", "hes": "Ezekiel",
	"joh": "John", "apg": "Acts", "röm": "Romans", "offb": "Revelation",
}

var (
	abbrevs      map[string]string
	canonicalKey []string
)

func init() {
	abbrevs = make(map[string]string, len(osisAbbrevs)+len(extraAbbrevs))
	for name, abbr := range osisAbbrevs {
		abbrevs[bookKey(abbr)] = name
	}
	for k, name := range extraAbbrevs {
		abbrevs[k] = name
	}
	canonicalKey = make([]string, len(CanonicalBooks))
	for i, name := range CanonicalBooks {
		canonicalKey[i] = bookKey(name)
	}
}

// bookKey folds case and drops whitespace and periods, so "1 John", "1john"
// and "1. JOHN" compare equal.
func bookKey(s string) string {
	folded := cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, folded)
}

// Abbrev returns the OSIS abbreviation of a canonical book name, or "".
func Abbrev(name string) string {
	return osisAbbrevs[name]
}

// CanonicalIndex returns the position of a book token in CanonicalBooks, or -1.
// The token is matched through the abbreviation table, then exactly, then by
// prefix in either direction; the first canonical book that matches wins.
func CanonicalIndex(token string) int {
	key := bookKey(token)
	if key == "" {
		return -1
	}
	if name, ok := abbrevs[key]; ok {
		key = bookKey(name)
	}
	for i, k := range canonicalKey {
		if k == key {
			return i
		}
	}
	for i, k := range canonicalKey {
		if strings.HasPrefix(k, key) || strings.HasPrefix(key, k) {
			return i
		}
	}
	return -1
}
