package usecase

import "strings"

var ruToEn = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "Yo", 'Ж': "Zh",
	'З': "Z", 'И': "I", 'Й': "J", 'К': "K", 'Л': "L", 'М': "M", 'Н': "N", 'О': "O",
	'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U", 'Ф': "F", 'Х': "H", 'Ц': "Ts",
	'Ч': "Ch", 'Ш': "Sh", 'Щ': "Shch", 'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu",
	'Я': "Ya",
}

var enToRu = map[rune]string{
	'a': "а", 'b': "б", 'v': "в", 'g': "г", 'd': "д", 'e': "е", 'z': "з", 'i': "и",
	'j': "й", 'k': "к", 'l': "л", 'm': "м", 'n': "н", 'o': "о", 'p': "п", 'r': "р",
	's': "с", 't': "т", 'u': "у", 'f': "ф", 'h': "х", 'y': "ы",
	'A': "А", 'B': "Б", 'V': "В", 'G': "Г", 'D': "Д", 'E': "Е", 'Z': "З", 'I': "И",
	'J': "Й", 'K': "К", 'L': "Л", 'M': "М", 'N': "Н", 'O': "О", 'P': "П", 'R': "Р",
	'S': "С", 'T': "Т", 'U': "У", 'F': "Ф", 'H': "Х", 'Y': "Ы",
}

// Latin digraphs replaced before single letters, in this order.
var enDigraphs = [][2]string{
	{"shch", "щ"}, {"Shch", "Щ"},
	{"yo", "ё"}, {"Yo", "Ё"},
	{"zh", "ж"}, {"Zh", "Ж"},
	{"ts", "ц"}, {"Ts", "Ц"},
	{"ch", "ч"}, {"Ch", "Ч"},
	{"sh", "ш"}, {"Sh", "Ш"},
	{"yu", "ю"}, {"Yu", "Ю"},
	{"ya", "я"}, {"Ya", "Я"},
}

// Transliterate converts Cyrillic text to Latin or Latin text to Cyrillic,
// phonetically and best-effort. Text containing both scripts, or neither,
// is returned unchanged. It is a matching aid, not a normalization.
func Transliterate(text string) string {
	var hasRu, hasEn bool
	for _, r := range text {
		if _, ok := ruToEn[r]; ok {
			hasRu = true
		}
		if _, ok := enToRu[r]; ok {
			hasEn = true
		}
	}

	var table map[rune]string
	switch {
	case hasRu && !hasEn:
		table = ruToEn
	case hasEn && !hasRu:
		for _, d := range enDigraphs {
			text = strings.ReplaceAll(text, d[0], d[1])
		}
		table = enToRu
	default:
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if s, ok := table[r]; ok {
			sb.WriteString(s)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
