// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// CreatePrettyLogger builds the CLI logger. Console output goes to stderr so
// command output on stdout stays clean. Outside debug mode structured fields
// are folded into friendly one-line messages. A non-empty logFile also gets
// every entry as JSON.
func CreatePrettyLogger(debug bool, logFile string) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	var console zapcore.Core = zapcore.NewCore(
		zapcore.NewConsoleEncoder(prettyEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	if !debug {
		console = &FieldFilterCore{core: console}
	}
	cores := []zapcore.Core{console}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			zap.DebugLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// FormatMessage turns well-known log entries into short human lines.
func FormatMessage(msg string, fields []zapcore.Field) string {
	switch {
	case strings.Contains(msg, "Transaction sent"):
		sig := extractField(fields, "signature")
		action := extractField(fields, "action")
		return fmt.Sprintf("%s📤 %s sent: %s%s", ColorYellow, titleOr(action, "Transaction"), shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Transaction confirmed"):
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s✅ Transaction confirmed: %s%s", ColorGreen, shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Starting bulk trade"):
		return fmt.Sprintf("%s🚀 Bulk trade on %s with %s wallets%s",
			ColorBlue, shortenAddress(extractField(fields, "mint")), extractField(fields, "wallets"), ColorReset)

	case strings.Contains(msg, "Trade executed"):
		return fmt.Sprintf("%s⚡ #%s %s %s SOL / %s tokens, price %s%s",
			ColorCyan,
			extractField(fields, "wallet_id"),
			extractField(fields, "action"),
			extractField(fields, "sol_amount"),
			extractField(fields, "token_amount"),
			extractField(fields, "projected_price"),
			ColorReset)

	case strings.Contains(msg, "Skipping wallet"):
		return fmt.Sprintf("%s⏭  #%s skipped: not enough SOL or tokens%s", ColorYellow, extractField(fields, "wallet_id"), ColorReset)

	case strings.Contains(msg, "Trade failed"):
		return fmt.Sprintf("%s⏭  #%s skipped: %s%s", ColorYellow, extractField(fields, "wallet_id"), extractField(fields, "error"), ColorReset)

	case strings.Contains(msg, "Price ceiling reached"):
		return fmt.Sprintf("%s🏁 Price ceiling reached at %s%s", ColorPurple, extractField(fields, "price"), ColorReset)

	case strings.Contains(msg, "Bulk trade finished"):
		return fmt.Sprintf("%s🎉 Done: %s buys, %s sells, %s skips%s",
			ColorGreen+ColorBold,
			extractField(fields, "buys"),
			extractField(fields, "sells"),
			extractField(fields, "skips"),
			ColorReset)

	default:
		if errMsg := extractField(fields, "error"); errMsg != "" {
			return msg + ": " + errMsg
		}
		return msg
	}
}

func extractField(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch {
		case field.Type == zapcore.StringType:
			return field.String
		case field.Type == zapcore.ErrorType:
			if err, ok := field.Interface.(error); ok {
				return err.Error()
			}
		case field.Type == zapcore.StringerType:
			if s, ok := field.Interface.(fmt.Stringer); ok {
				return s.String()
			}
		case isIntegerField(field.Type):
			return fmt.Sprintf("%d", field.Integer)
		}
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

func isIntegerField(t zapcore.FieldType) bool {
	switch t {
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return true
	}
	return false
}

func titleOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// FieldFilterCore wraps a zapcore.Core, dropping structured fields and
// rendering the message through FormatMessage instead.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field(nil), c.fields...), fields...)
	entry.Message = FormatMessage(entry.Message, all)
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
