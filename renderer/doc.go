// Package renderer implements the context renderer: it decodes a JSON
// context, normalizes it with the normalizer rules, hands the text map to a
// template engine and reports the written document.
//
// Failures are returned as *Error values carrying a Kind (argument, decode or
// render) so callers can map them to exit codes or HTTP statuses without
// inspecting messages.
package renderer
