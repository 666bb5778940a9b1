// Package snsctx carries bus tracing settings through contexts.
package snsctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexSequence
)

// IsVerbose reports whether bus backends should trace every transfer.
func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Sequence names the acquisition sequence that issued a transfer, empty
// outside of one.
func Sequence(ctx context.Context) string {
	val, _ := ctx.Value(ctxIndexSequence).(string)
	return val
}

func SetSequence(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxIndexSequence, name)
}

// TraceAttrs returns the slog attributes bus backends add to trace records.
func TraceAttrs(ctx context.Context, address byte, data []byte) []any {
	attrs := []any{"address", address, "data", data}
	if seq := Sequence(ctx); seq != "" {
		attrs = append(attrs, "sequence", seq)
	}
	return attrs
}
