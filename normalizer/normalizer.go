package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Context is a decoded JSON object before normalization.
// Numbers are expected as json.Number so their literal text
// survives stringification.
type Context map[string]any

// Values is a normalized context: every value is text.
type Values map[string]string

// Stringify converts every value of ctx to text. Strings
// are kept as they are, numbers keep their JSON literal,
// null becomes the empty string and arrays or objects are
// re-encoded as compact JSON.
func Stringify(ctx Context) Values {
	out := make(Values, len(ctx))

	for key, val := range ctx {
		out[key] = stringify(val)
	}

	return out
}

func stringify(val any) string {
	switch typedVal := val.(type) {
	case string:
		return typedVal
	case nil:
		return ""
	case json.Number:
		return typedVal.String()
	case float64:
		return strconv.FormatFloat(typedVal, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typedVal), 'f', -1, 32)
	case int:
		return strconv.Itoa(typedVal)
	case int64:
		return strconv.FormatInt(typedVal, 10)
	case bool:
		return strconv.FormatBool(typedVal)
	case fmt.Stringer:
		return typedVal.String()
	}

	by, err := json.Marshal(val)
	if err != nil {
		return fmt.Sprint(val)
	}

	return string(by)
}

// Uppercase replaces the value of each key present in vals
// and not empty by its pt-BR uppercase form.
func Uppercase(vals Values, keys []string) {
	upperCaser := cases.Upper(language.BrazilianPortuguese)

	for _, key := range keys {
		if val := vals[key]; val != "" {
			vals[key] = upperCaser.String(val)
		}
	}
}

// FormatMoneyFields applies FormatMoney to each key present
// in vals.
func FormatMoneyFields(vals Values, keys []string) {
	for _, key := range keys {
		if val, ok := vals[key]; ok {
			vals[key] = FormatMoney(val)
		}
	}
}

// CollapseSuffix replaces every key ending in suffix by the
// key without it, holding the money formatted value. An
// existing base key is overwritten.
func CollapseSuffix(vals Values, suffix string) {
	if suffix == "" {
		return
	}

	var suffixed []string

	for key := range vals {
		if strings.HasSuffix(key, suffix) {
			suffixed = append(suffixed, key)
		}
	}

	// Sorted so a base key that itself ends in suffix is
	// resolved the same way on every run.
	sort.Strings(suffixed)

	collapsed := make(map[string]string, len(suffixed))
	for _, key := range suffixed {
		collapsed[strings.TrimSuffix(key, suffix)] = FormatMoney(vals[key])
	}

	for _, key := range suffixed {
		delete(vals, key)
	}

	for key, val := range collapsed {
		vals[key] = val
	}
}
