package normalizer

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// DefaultMoneySuffix marks table fields that are collapsed
// into their base name with a currency value.
const DefaultMoneySuffix = "_FLOAT"

// Rules holds the field tables driving normalization.
type Rules struct {
	// Uppercase lists header fields rendered in uppercase.
	Uppercase []string `yaml:"uppercase"`

	// Money lists fields rendered as currency.
	Money []string `yaml:"money"`

	// MoneySuffix marks fields collapsed into their base
	// name with a currency value.
	MoneySuffix string `yaml:"money_suffix"`
}

// DefaultRules returns the petition header and amount
// fields.
func DefaultRules() Rules {
	return Rules{
		Uppercase: []string{
			"CIDADE",
			"ESTADO",
			"TIPO_ORGAO",
			"NOME_COMPLETO",
			"NOME_EMPRESA",
		},
		Money: []string{
			"VALOR_PAGO_INDEVIDO",
			"VALOR_INDEVIDO_DOBRO",
			"VALOR_CAUSA",
		},
		MoneySuffix: DefaultMoneySuffix,
	}
}

// LoadRules reads rules from a YAML file. Tables missing
// from the file keep their default value.
func LoadRules(path string) (Rules, error) {
	const errCtx = "loading normalization rules"

	content, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var loaded Rules
	if err := yaml.Unmarshal(content, &loaded); err != nil {
		return Rules{}, fmt.Errorf(
			"%s: decoding %s: %w", errCtx, path, err,
		)
	}

	rules := DefaultRules()

	if loaded.Uppercase != nil {
		rules.Uppercase = loaded.Uppercase
	}

	if loaded.Money != nil {
		rules.Money = loaded.Money
	}

	if loaded.MoneySuffix != "" {
		rules.MoneySuffix = loaded.MoneySuffix
	}

	return rules, nil
}

// Apply runs the normalization passes over ctx and returns
// the resulting text map. ctx is not modified.
func (r Rules) Apply(ctx Context) Values {
	vals := Stringify(ctx)

	Uppercase(vals, r.Uppercase)
	FormatMoneyFields(vals, r.Money)
	CollapseSuffix(vals, r.MoneySuffix)

	return vals
}
