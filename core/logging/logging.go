package logging

import (
	"go.uber.org/zap"
)

// Logger is the shared package-level logger. Components that are not handed a
// dedicated logger through options fall back to this one.
var Logger *zap.Logger

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on invalid config, which cannot
		// happen with the defaults.
		panic(err)
	}
	Logger = logger
}

// SetLogger swaps the package-level logger. A nil logger installs a no-op
// logger rather than panicking on first use.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		Logger = zap.NewNop()
		return
	}
	Logger = logger
}
