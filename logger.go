package querysync

// Fields are the key/value pairs attached to an engine log line.
type Fields map[string]any

// Logger receives the engine's diagnostics: fetches issued and collapsed,
// discarded results, store failures. Debug carries the per-request chatter;
// Warn is used for failed fetches and store errors. Adapters live under
// log/ (logrus, zap, zerolog, slog). A nil Options.Logger silences the engine.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger drops everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
