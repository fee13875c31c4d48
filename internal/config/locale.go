package config

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var codesets = map[string]encoding.Encoding{
	"iso88591":    charmap.ISO8859_1,
	"latin1":      charmap.ISO8859_1,
	"iso88592":    charmap.ISO8859_2,
	"iso885915":   charmap.ISO8859_15,
	"koi8r":       charmap.KOI8R,
	"koi8u":       charmap.KOI8U,
	"cp1251":      charmap.Windows1251,
	"cp1252":      charmap.Windows1252,
	"windows1251": charmap.Windows1251,
	"windows1252": charmap.Windows1252,
}

// LocaleEncoding derives the text encoding of collaborator output from the
// locale environment (LC_ALL, then LC_CTYPE, then LANG). UTF-8, the C locale
// and unknown codesets all map to UTF-8.
func LocaleEncoding(getenv func(string) string) encoding.Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := getenv(key)
		if v == "" {
			continue
		}
		return encodingForLocale(v)
	}
	return unicode.UTF8
}

func encodingForLocale(locale string) encoding.Encoding {
	// language_TERRITORY.CODESET@modifier
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale = locale[:i]
	}
	i := strings.IndexByte(locale, '.')
	if i < 0 {
		return unicode.UTF8
	}
	codeset := strings.ToLower(locale[i+1:])
	codeset = strings.NewReplacer("-", "", "_", "").Replace(codeset)
	if enc, ok := codesets[codeset]; ok {
		return enc
	}
	return unicode.UTF8
}

// DecodeOutput converts collaborator output to UTF-8.
func DecodeOutput(enc encoding.Encoding, out []byte) (string, error) {
	if enc == nil || enc == unicode.UTF8 {
		return string(out), nil
	}
	b, err := enc.NewDecoder().Bytes(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
