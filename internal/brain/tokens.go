package brain

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts the tokens text occupies in a model prompt.
type TokenCounter func(text string) int

// ApproxTokens estimates one token per four bytes.
func ApproxTokens(text string) int {
	return (len(text) + 3) / 4
}

// TiktokenCounter counts with the cl100k_base encoding. If the encoding
// cannot be loaded it logs and falls back to ApproxTokens.
func TiktokenCounter(logger *slog.Logger) TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		if logger != nil {
			logger.Warn("tiktoken unavailable; approximating token counts", "err", err)
		}
		return ApproxTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}
