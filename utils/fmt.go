package utils

import "fmt"

func AppendfNoEscape(buf []byte, format string, v ...any) []byte {
	return fmt.Appendf(buf, format, v...)
}

func SprintfNoEscape(format string, v ...any) string {
	return string(AppendfNoEscape(make([]byte, 0, len(format)*2), format, v...))
}
