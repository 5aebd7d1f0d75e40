package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type LogLevel int

const (
	LogLevelError = LogLevel(1 << iota)
	LogLevelInfo
	LogLevelNotice
	LogLevelDebug
)

var GlobalLogLevel = LogLevelError | LogLevelInfo

// LogOutput receives every formatted log line. Writes are serialized.
var LogOutput io.Writer = os.Stdout

var logOutputLock sync.Mutex

var logBufPool sync.Pool

//nolint:gochecknoinits
func init() {
	logBufPool.New = func() any {
		return make([]byte, 0, 512)
	}
}

func getLogBuf() []byte {
	//nolint:forcetypeassert
	return logBufPool.Get().([]byte)[:0]
}

func returnLogBuf(buf []byte) {
	//nolint:staticcheck
	logBufPool.Put(buf)
}

func Panicf(format string, v ...any) {
	buf := getLogBuf()
	defer returnLogBuf(buf)
	buf = AppendfNoEscape(innerPrint(buf, "", "PANIC"), format, v...)
	_println(buf)
	panic(string(buf))
}

func Errorf(prefix, format string, v ...any) {
	logf(LogLevelError, prefix, "ERROR", format, v...)
}

func Logf(prefix, format string, v ...any) {
	logf(LogLevelInfo, prefix, "INFO", format, v...)
}

func Noticef(prefix, format string, v ...any) {
	logf(LogLevelNotice, prefix, "NOTICE", format, v...)
}

func Debugf(prefix, format string, v ...any) {
	logf(LogLevelDebug, prefix, "DEBUG", format, v...)
}

func logf(level LogLevel, prefix, class, format string, v ...any) {
	if GlobalLogLevel&level == 0 {
		return
	}
	buf := getLogBuf()
	defer returnLogBuf(buf)
	_println(AppendfNoEscape(innerPrint(buf, prefix, class), format, v...))
}

func _println(buf []byte) {
	buf = bytes.TrimSpace(buf)
	buf = append(buf, '\n')

	logOutputLock.Lock()
	defer logOutputLock.Unlock()
	_, _ = LogOutput.Write(buf)
}

func innerPrint(buf []byte, prefix, class string) []byte {
	buf = time.Now().UTC().AppendFormat(buf, "2006-01-02 15:04:05.000")
	if prefix == "" {
		return fmt.Appendf(buf, " %s ", class)
	}
	return fmt.Appendf(buf, " [%s] %s ", prefix, class)
}
