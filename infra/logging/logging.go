package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shelfmark/shelfmark/infra/loki"
)

// New builds the service logger: JSON to stdout, and teed to Loki when
// lokiURL is set. service becomes a fixed field on every entry.
func New(service, lokiURL string) (*zap.Logger, func()) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), zapcore.InfoLevel),
	}

	var lw *loki.Writer
	if lw = loki.NewWriter(lokiURL, service); lw != nil {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lw), zapcore.InfoLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.String("service", service))

	cleanup := func() {
		_ = logger.Sync()
		if lw != nil {
			_ = lw.Close()
		}
	}
	return logger, cleanup
}
