package ports

import "context"

// CodeModifier rewrites code according to a natural-language instruction.
// The returned text has any code-fence markup removed; it is not guaranteed
// to be valid code.
type CodeModifier interface {
	ModifyCode(ctx context.Context, code, instruction string) (string, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
