package renderer

// Kind classifies a renderer failure.
type Kind int

const (
	// KindArgument reports missing or invalid paths.
	KindArgument Kind = iota + 1
	// KindDecode reports a context that is not a JSON object.
	KindDecode
	// KindRender reports a failure loading the template,
	// substituting values or saving the output.
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument error"
	case KindDecode:
		return "decode error"
	case KindRender:
		return "render error"
	default:
		return "unknown error"
	}
}

// Error is returned by every failing renderer operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
