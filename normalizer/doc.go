// Package normalizer turns a decoded JSON context into the flat text map
// handed to the template engine. Rules.Apply runs four passes in order:
// Stringify coerces every value to text, Uppercase rewrites header fields,
// FormatMoneyFields renders monetary fields as Brazilian currency, and
// CollapseSuffix replaces "_FLOAT" table fields by their base names holding
// the currency text.
//
// The field tables live in Rules so they can be loaded from YAML with
// LoadRules instead of being hard-coded.
package normalizer
