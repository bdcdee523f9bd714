// Package logging builds the application logger: ectologger's structured
// interface writing through a zap sink.
package logging

import (
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
)

// New creates the application logger. Pretty mode uses zap's development
// encoder for local runs; otherwise structured production JSON.
func New(pretty bool) (ectologger.Logger, error) {
	var sink *zap.Logger
	var err error
	if pretty {
		sink, err = zap.NewDevelopment()
	} else {
		sink, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	zl := sink.WithOptions(zap.AddCallerSkip(1))
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			zl.Error("failed to encode log message", zap.Error(err))
			return
		}
		zl.Info(string(data))
	})

	return logger, nil
}
