package analysis

// numberWords maps number words in both supported languages to their value.
// Keys are in normalized form (lowercase, no diacritics).
var numberWords = map[string]int{
	// French
	"un": 1, "une": 1, "deux": 2, "trois": 3, "quatre": 4, "cinq": 5,
	"six": 6, "sept": 7, "huit": 8, "neuf": 9, "dix": 10, "onze": 11,
	"douze": 12, "quinze": 15, "vingt": 20, "trente": 30, "cinquante": 50,
	"cent": 100,
	// English
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"fifteen": 15, "twenty": 20, "thirty": 30, "fifty": 50, "hundred": 100,
}

// vagueQuantity maps an imprecise quantity phrase to the integer the
// pipeline assumes for it. Order matters: longer phrases first so "beaucoup
// de" wins over bare "beaucoup".
type vagueQuantity struct {
	phrase string
	value  int
}

var vagueQuantities = []vagueQuantity{
	{"quelques", 3},
	{"une poignee de", 3},
	{"a few", 3},
	{"a couple of", 2},
	{"plusieurs", 5},
	{"several", 5},
	{"beaucoup de", 10},
	{"beaucoup", 10},
	{"plein de", 10},
	{"a lot of", 10},
	{"lots of", 10},
	{"many", 10},
}

// NumberWordValue returns the value of a number word, if known.
func NumberWordValue(word string) (int, bool) {
	v, ok := numberWords[word]
	return v, ok
}
