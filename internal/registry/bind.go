package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/vinodismyname/sheettools/pkg/validation"
)

// Bind adapts a typed handler into a Handler. The raw parameter object is
// decoded into T and validated before fn runs, so a missing or mistyped
// parameter fails with INVALID_PARAMETERS ahead of any file work.
func Bind[T any, R any](fn func(ctx context.Context, req T) (R, error)) Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req T
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := validation.Params(req); err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}

func decodeParams(params json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(params))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return mcperr.New(mcperr.InvalidParameters, "parameters must be an object")
			}
			return mcperr.Newf(mcperr.InvalidParameters, "parameter %s must be a %s", typeErr.Field, typeName(typeErr))
		}
		return mcperr.Wrapf(mcperr.InvalidParameters, err, "invalid parameters")
	}
	return nil
}

func typeName(e *json.UnmarshalTypeError) string {
	if e.Type == nil {
		return "value"
	}
	t := e.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind().String()
}
