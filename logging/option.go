package logging

import (
	"context"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/di"
)

// SinkSpec describes the log destinations of one engine-config logger-sink
// role ("default", "startup"). Each set field adds one LoggingBuilder
// provider: console, file, or TCP.
type SinkSpec struct {
	Console bool
	FilePath string
	TCPAddr  string
}

// Configure builds one LoggerFactory from every role's sink specs and
// registers it into the DI container as LoggerFactory, plus a Logger with
// category "default" under the Logger interface so ordinary constructors
// can just ask for a Logger. All roles feed the same factory: role names
// are not kept apart, and that Logger writes to the sinks of every role.
func Configure(sinks map[string]SinkSpec, minimum LogLevel) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewLoggingBuilder().SetMinimumLevel(minimum)

		var tcpProviders []*TCPLoggerProvider
		for _, spec := range sinks {
			if spec.Console {
				builder.AddConsole()
			}
			if spec.FilePath != "" {
				builder.AddFile(spec.FilePath)
			}
			if spec.TCPAddr != "" {
				provider := NewTCPLoggerProvider(TCPLoggerOptions{Addr: spec.TCPAddr})
				tcpProviders = append(tcpProviders, provider)
				builder.AddProvider(provider)
			}
		}

		factory := builder.Build()
		di.Register[LoggerFactory](rt.Container, di.WithValue(factory))
		di.Register[Logger](rt.Container, di.WithValue(factory.CreateLogger("default")))

		if len(tcpProviders) > 0 {
			rt.Lifecycle.OnStop(func(ctx context.Context) error {
				for _, p := range tcpProviders {
					p.Close()
				}
				return nil
			})
		}

		return nil
	}
}
