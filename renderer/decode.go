package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/docxfill/normalizer"
)

// DecodeContext parses a JSON object into a context.
// Numbers are kept as json.Number.
func DecodeContext(raw []byte) (normalizer.Context, error) {
	const errCtx = "decoding context"

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var ctx normalizer.Context
	if err := dec.Decode(&ctx); err != nil {
		return nil, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("%s: %w", errCtx, err),
		}
	}

	if ctx == nil {
		return nil, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("%s: context must be a JSON object", errCtx),
		}
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("%s: unexpected data after object", errCtx),
		}
	}

	return ctx, nil
}
