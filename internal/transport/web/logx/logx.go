// Package logx writes key=value lines through a *log.Logger.
package logx

import (
	"fmt"
	"log"
	"strings"
)

func Info(l *log.Logger, reqID, op, msg string, kv ...any) {
	write(l, "info", reqID, op, msg, nil, kv)
}

func Error(l *log.Logger, reqID, op, msg string, err error, kv ...any) {
	write(l, "error", reqID, op, msg, err, kv)
}

func write(l *log.Logger, lvl, reqID, op, msg string, err error, kv []any) {
	if l == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "lvl=%s req_id=%s op=%s msg=%q", lvl, reqID, op, msg)
	if err != nil {
		fmt.Fprintf(&b, " err=%q", err.Error())
	}
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fmt.Fprintf(&b, " %s=<missing>", key)
			break
		}
		fmt.Fprintf(&b, " %s=%v", key, kv[i+1])
	}
	l.Print(b.String())
}
