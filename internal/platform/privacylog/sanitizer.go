// Package privacylog keeps wallet material out of structured logs. The
// daemon handles mnemonics, private keys and API tokens; none of them may
// ever reach a log sink, even through a careless call site.
package privacylog

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{
	"mnemonic", "seed", "private_key", "privatekey",
	"passphrase", "password", "secret", "token", "authorization", "auth",
}

// rawKeyPattern matches a bare 32-byte hex scalar, with or without the 0x
// prefix. Transaction hashes share the shape but are public, so only values
// under non-hash keys are tested against it.
var rawKeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

var publicHashKeys = map[string]struct{}{
	"tx": {}, "tx_hash": {}, "txhash": {}, "hash": {},
	"ip_metadata_hash": {}, "nft_metadata_hash": {}, "image_hash": {},
}

// SanitizingHandler rewrites records before the wrapped handler sees them.
type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	lowerKey := strings.ToLower(key)
	if isSensitiveKey(lowerKey) {
		return slog.String(key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: key, Value: slog.GroupValue(sanitizeAttrs(attr.Value.Group())...)}
	}
	if attr.Value.Kind() == slog.KindString && looksLikeKeyMaterial(lowerKey, attr.Value.String()) {
		return slog.String(key, redactedValue)
	}
	return attr
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func looksLikeKeyMaterial(key, value string) bool {
	if _, public := publicHashKeys[key]; public {
		return false
	}
	return rawKeyPattern.MatchString(strings.TrimSpace(value))
}
