package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
)

// levelStyle maps a zerolog level name to its three-letter tag and color.
var levelStyle = map[string]struct{ tag, color string }{
	"debug": {"DBG", "\033[36m"},
	"info":  {"INF", "\033[32m"},
	"warn":  {"WRN", "\033[33m"},
	"error": {"ERR", "\033[31m"},
	"fatal": {"FTL", "\033[35m"},
}

// consoleWriter renders lines as "15:04:05 [GAT][INF] message key:value".
// The bracketed service prefix is the first three letters of its name.
func consoleWriter(w io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	paint := func(color, s string) string {
		if noColor || color == "" {
			return s
		}
		return color + s + ansiReset
	}

	var prefix string
	if len(service) >= 3 {
		prefix = paint(ansiBlue, "["+strings.ToUpper(service[:3])+"]")
	}

	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
		FormatLevel: func(v interface{}) string {
			name := strings.ToLower(fmt.Sprint(v))
			style, ok := levelStyle[name]
			if !ok {
				style.tag = strings.ToUpper(name)
			}
			return prefix + paint(style.color, "["+style.tag+"]")
		},
		FormatFieldName: func(v interface{}) string {
			return fmt.Sprint(v) + ":"
		},
	}
}
