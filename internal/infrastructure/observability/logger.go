package observability

import (
	"log/slog"
	"os"
)

func InitLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// TransactionLogger scopes log lines to one payment transaction.
func TransactionLogger(reference, uuid string) *slog.Logger {
	return slog.With("reference", reference, "uuid", uuid)
}
