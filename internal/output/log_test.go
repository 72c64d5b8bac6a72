package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewJSONLogger(t *testing.T) {
	testCases := []struct {
		name  string
		given []Option
		want  logrus.Level
	}{
		{name: "with defaults", want: logrus.WarnLevel},
		{name: "with debug level", given: []Option{WithLevel("debug")}, want: logrus.DebugLevel},
		{name: "with invalid level", given: []Option{WithLevel("loud")}, want: logrus.WarnLevel},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := NewJSONLogger(tt.given...)
			if got.GetLevel() != tt.want {
				t.Errorf("got level %s, want %s", got.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewJSONLoggerOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(WithOutput(buf), WithLevel("info"))

	logger.WithField("count", 2).Info("sources enumerated")

	entry := map[string]interface{}{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("got error %v decoding %q", err, buf.String())
	}
	if entry["msg"] != "sources enumerated" || entry["count"] != float64(2) {
		t.Errorf("got entry %v", entry)
	}
}
