package logx

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoFormat(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	Info(l, "r1", "sessions.get", "ok", "session_id", "abc", "photos", 3)
	assert.Equal(t, "lvl=info req_id=r1 op=sessions.get msg=\"ok\" session_id=abc photos=3\n", buf.String())
}

func TestErrorFormat(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	Error(l, "r2", "op", "failed", errors.New("boom"), "dangling")
	assert.Equal(t, "lvl=error req_id=r2 op=op msg=\"failed\" err=\"boom\" dangling=<missing>\n", buf.String())
}

func TestNilLogger(t *testing.T) {
	assert.NotPanics(t, func() { Info(nil, "", "", "") })
}
