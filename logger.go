package unibill

import (
	"github.com/unkn0wn-root/unibill/provider"
)

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging stack
// (see log/zap, log/logrus, log/slog). If Config.Logger is nil, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

func providerFields(p provider.Provider) Fields {
	if p == nil {
		return Fields{"provider": nil}
	}
	info := p.Info()
	return Fields{"provider": info.Name, "package": info.Package}
}

func (f Fields) with(k string, v any) Fields {
	out := make(Fields, len(f)+1)
	for kk, vv := range f {
		out[kk] = vv
	}
	out[k] = v
	return out
}
