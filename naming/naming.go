// Package naming derives output file names from the parties named in a
// petition context.
package naming

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Prefix starts every generated file name.
const Prefix = "01_Peticao_Inicial_Emprestimo_"

var (
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscores = regexp.MustCompile(`_+`)
)

var (
	nameKeys    = []string{"NOME_COMPLETO", "nome_completo"}
	companyKeys = []string{
		"RAZAO_SOCIAL_RE",
		"razao_social",
		"nome_empresa",
		"NOME_EMPRESA",
	}
)

// FileName returns
// "01_Peticao_Inicial_Emprestimo_<first>_<last>_x_<company>.<ext>"
// where first and last are the first and last words of the
// author's full name and company is the defendant.
func FileName(values map[string]string, ext string) string {
	words := strings.Fields(first(values, nameKeys))

	firstName, lastName := "Nome", "Sobrenome"
	if len(words) > 0 {
		firstName = words[0]
		lastName = words[len(words)-1]
	}

	company := strings.TrimSpace(first(values, companyKeys))
	if company == "" {
		company = "Empresa"
	}

	return Prefix +
		Slug(firstName) + "_" +
		Slug(lastName) + "_x_" +
		Slug(company) + "." + ext
}

// Slug removes accents, replaces every other non
// alphanumeric character by "_" and collapses runs of
// underscores.
func Slug(s string) string {
	tr := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)

	plain, _, err := transform.String(tr, s)
	if err != nil {
		plain = s
	}

	plain = nonAlnum.ReplaceAllString(plain, "_")
	plain = underscores.ReplaceAllString(plain, "_")

	return strings.Trim(plain, "_")
}

func first(values map[string]string, keys []string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(values[key]); val != "" {
			return val
		}
	}

	return ""
}
