package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type recordingCloser struct{ closed int }

func (r *recordingCloser) Close() error {
	r.closed++
	return nil
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"clean shutdown", nil, 0},
		{"run failed", errors.New("connect database: refused"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			closer := &recordingCloser{}
			got := exitCode(tc.err, slog.New(slog.NewTextHandler(&buf, nil)), closer)
			if got != tc.want {
				t.Errorf("exitCode = %d, want %d", got, tc.want)
			}
			if closer.closed != 1 {
				t.Errorf("logger closed %d times, want 1", closer.closed)
			}
			if logged := strings.Contains(buf.String(), "homie api stopped"); logged != (tc.err != nil) {
				t.Errorf("log = %q", buf.String())
			}
		})
	}
}
