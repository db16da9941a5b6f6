package event

import (
	"strings"
	"unicode"
)

// Cyrillic to Latin, common romanization. Filenames inside the archive
// must stay ASCII-safe across unpacking tools.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

var timeSeparators = strings.NewReplacer(":", "", "_", "")

// DocumentName derives the deterministic output filename for a record:
// transliterated lowercase city with whitespace collapsed to hyphens,
// the date with dots as hyphens, and the time with separators
// stripped. Two records with the same city, date and time produce the
// same name; in an archive the later row wins, by design.
func DocumentName(city, date, tm string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(city) {
		if unicode.IsSpace(r) {
			b.WriteByte('-')
			continue
		}
		if t, ok := translit[r]; ok {
			b.WriteString(t)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('-')
	b.WriteString(strings.ReplaceAll(date, ".", "-"))
	b.WriteByte('-')
	b.WriteString(timeSeparators.Replace(tm))
	b.WriteString(".html")
	return b.String()
}
