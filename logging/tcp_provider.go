package logging

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// TCPLoggerOptions configures a TCPLoggerProvider (§2.2 "TCP logging
// sink"): logs are JSON-framed one-per-line and shipped over a persistent
// connection that reconnects on failure with an initial-then-fixed delay,
// the way the teacher's AsyncWriter assumes a durable io.Writer underneath
// it without itself handling reconnection.
type TCPLoggerOptions struct {
	Addr          string
	DialTimeout   time.Duration
	ReconnectWait time.Duration
	BufferSize    int
}

func (o *TCPLoggerOptions) setDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
}

// TCPLoggerProvider streams log entries to a remote collector. It wraps a
// reconnectingConn in an AsyncWriter so CreateLogger callers never block on
// network I/O.
type TCPLoggerProvider struct {
	options      TCPLoggerOptions
	minimumLevel LogLevel
	mu           sync.RWMutex
	writer       *AsyncWriter
	conn         *reconnectingConn
}

// NewTCPLoggerProvider dials lazily: the first write attempt establishes
// the connection, and every write after a drop triggers a fresh dial after
// ReconnectWait.
func NewTCPLoggerProvider(options TCPLoggerOptions) *TCPLoggerProvider {
	options.setDefaults()
	conn := &reconnectingConn{addr: options.Addr, dialTimeout: options.DialTimeout, reconnectWait: options.ReconnectWait}
	return &TCPLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
		conn:         conn,
		writer:       NewAsyncWriter(conn, NewJsonFormatter(), options.BufferSize),
	}
}

func (p *TCPLoggerProvider) CreateLogger(category string) Logger {
	return &asyncLogger{category: category, writer: p.writer, minimumLevelFn: p.getMinimumLevel}
}

func (p *TCPLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *TCPLoggerProvider) getMinimumLevel() LogLevel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minimumLevel
}

// Close releases the underlying connection and flushes any queued writes.
func (p *TCPLoggerProvider) Close() error {
	if err := p.writer.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// reconnectingConn is an io.Writer over a TCP connection that lazily
// (re)dials on write. The first dial, before any failure, fires
// immediately; after a failed dial or write, no new dial is attempted until
// reconnectWait has passed since that failure (writes in between return an
// error), so a collector restart doesn't spin the dialer.
type reconnectingConn struct {
	addr          string
	dialTimeout   time.Duration
	reconnectWait time.Duration

	mu        sync.Mutex
	conn      net.Conn
	lastFail  time.Time
	hasFailed bool
}

func (c *reconnectingConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(); err != nil {
			return 0, err
		}
	}

	n, err := c.conn.Write(p)
	if err != nil {
		c.conn.Close()
		c.conn = nil
		c.lastFail = time.Now()
		c.hasFailed = true
	}
	return n, err
}

func (c *reconnectingConn) dialLocked() error {
	if c.hasFailed {
		if wait := c.reconnectWait - time.Since(c.lastFail); wait > 0 {
			return fmt.Errorf("logging: tcp sink %s backing off for %s", c.addr, wait)
		}
	}

	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		c.lastFail = time.Now()
		c.hasFailed = true
		return fmt.Errorf("logging: tcp sink dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.hasFailed = false
	return nil
}

func (c *reconnectingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// asyncLogger is a Logger backed by an AsyncWriter, used by providers
// (TCP, and potentially others) that ship formatted entries off-thread
// rather than writing synchronously the way consoleLogger/fileLogger do.
type asyncLogger struct {
	category       string
	writer         *AsyncWriter
	minimumLevelFn func() LogLevel
	fields         []Field
}

func (l *asyncLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *asyncLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *asyncLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *asyncLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *asyncLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *asyncLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *asyncLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevelFn() {
		return
	}
	l.writer.WriteLog(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   append(append([]Field(nil), l.fields...), fields...),
	})
}

func (l *asyncLogger) WithFields(fields ...Field) Logger {
	return &asyncLogger{
		category:       l.category,
		writer:         l.writer,
		minimumLevelFn: l.minimumLevelFn,
		fields:         append(append([]Field(nil), l.fields...), fields...),
	}
}

func (l *asyncLogger) WithCategory(category string) Logger {
	return &asyncLogger{
		category:       category,
		writer:         l.writer,
		minimumLevelFn: l.minimumLevelFn,
		fields:         l.fields,
	}
}
