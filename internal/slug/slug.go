// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separators matches any run of characters that is not a letter, digit or
// combining mark, in any script.
var separators = regexp.MustCompile(`[^\p{L}\p{N}\p{M}]+`)

// Generate creates a URL-friendly slug from the given string.
// Example: "Café & Crème, 2026!" → "cafe-creme-2026"
//
// Latin accents are folded, Cyrillic and Greek are transliterated, and
// letters of other scripts are kept as they are, so "Фантастика" becomes
// "fantastika" and "日本文学" stays "日本文学".
//
// The result is idempotent: Generate(Generate(s)) == Generate(s).
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = norm.NFC.String(result)
	result = transliterate(result)
	result = fold(result)
	// Greek letters that carried an accent only match after folding.
	result = transliterate(result)
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// fold decomposes accented letters and drops the combining marks so
// "é" becomes "e".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if latin, ok := charmap[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// charmap holds lower-case Cyrillic and Greek letters with their Latin
// spelling. Input is lower-cased before lookup.
var charmap = map[rune]string{
	// Russian
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	// Ukrainian, Belarusian, Serbian and Macedonian additions
	'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g", 'ў': "u", 'ђ': "dj",
	'ј': "j", 'љ': "lj", 'њ': "nj", 'ћ': "c", 'џ': "dz", 'ѓ': "gj",
	'ќ': "kj", 'ѕ': "dz",
	// Greek
	'α': "a", 'β': "v", 'γ': "g", 'δ': "d", 'ε': "e", 'ζ': "z", 'η': "i",
	'θ': "th", 'ι': "i", 'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "x",
	'ο': "o", 'π': "p", 'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y",
	'φ': "f", 'χ': "ch", 'ψ': "ps", 'ω': "o",
}
