package library

import (
	"strings"

	"github.com/dawei7/biblereader/internal/models"
)

// SampleVersion is the version name of the built-in sample.
const SampleVersion = "sample"

var sampleGenesis = models.Chapter{
	"Im Anfang schuf Gott den Himmel und die Erde.",
	"Und die Erde war wüst und leer, und es lag Finsternis auf der Tiefe, und der Geist Gottes schwebte über den Wassern.",
	"Und Gott sprach: Es werde Licht! Und es ward Licht.",
	"Und Gott sah, daß das Licht gut war; da schied Gott das Licht von der Finsternis;",
	"und Gott nannte das Licht Tag, und die Finsternis Nacht. Und es ward Abend, und es ward Morgen: der erste Tag.",
	"Und Gott sprach: Es soll eine Feste entstehen inmitten der Wasser, die bilde eine Scheidewand zwischen den Gewässern!",
	"Und Gott machte die Feste und schied das Wasser unter der Feste von dem Wasser über der Feste, daß es so ward.",
	"Und Gott nannte die Feste Himmel. Und es ward Abend, und es ward Morgen: der zweite Tag.",
	"Und Gott sprach: Es sammle sich das Wasser unter dem Himmel an einen Ort, daß man das Trockene sehe! Und es geschah also.",
	"Und Gott nannte das Trockene Land; aber die Sammlung der Wasser nannte er Meer. Und Gott sah, daß es gut war.",
	"Und Gott sprach: Es lasse die Erde grünes Gras sprossen und Gewächs, das Samen trägt, fruchtbare Bäume, deren jeder seine besondere Art Früchte bringt, in welcher ihr Same sei auf Erden! Und es geschah also.",
	"Und die Erde brachte hervor Gras und Gewächs, das Samen trägt nach seiner Art, und Bäume, welche Früchte bringen, in welchen ihr Same ist nach ihrer Art. Und Gott sah, daß es gut war.",
	"Und es ward Abend, und es ward Morgen: der dritte Tag.",
}

// Sample returns the built-in corpus used when no version can be loaded:
// the first thirteen verses of Genesis in German. Each call returns a fresh copy.
func Sample() *models.Corpus {
	ch := make(models.Chapter, len(sampleGenesis))
	copy(ch, sampleGenesis)
	c := &models.Corpus{
		Version: SampleVersion,
		Books:   []models.Book{{Name: "Genesis", Abbrev: "gn", Chapters: []models.Chapter{ch}}},
	}
	c.Fingerprint = Fingerprint([]byte(strings.Join(ch, "\n")))
	return c
}
