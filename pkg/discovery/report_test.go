package discovery

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestParseReport(t *testing.T) {
	testCases := []struct {
		name  string
		given string
		want  []Source
	}{
		{name: "with no devices", given: "Found 0 devices\n", want: []Source{}},
		{
			name: "with devices",
			given: "Found 2 devices\n" +
				"Device STUDIO (Camera 1) with 1 configurations\n" +
				"  address: 192.168.1.20:5961\n" +
				"Device STUDIO (Camera 2) with 1 configurations\n" +
				"  address: unknown\n",
			want: []Source{
				{Name: "STUDIO (Camera 1)", Address: "192.168.1.20:5961"},
				{Name: "STUDIO (Camera 2)"},
			},
		},
		{
			name: "with a device missing its address line",
			given: "Found 2 devices\n" +
				"Device CAM1 with 1 configurations\n" +
				"Device CAM2 with 1 configurations\n" +
				"  address: 10.0.0.6\n",
			want: []Source{{Name: "CAM2", Address: "10.0.0.6"}},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReport(strings.NewReader(tt.given))
			if err != nil {
				t.Fatalf("got error %v", err)
			}
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	testCases := []struct {
		name  string
		given []Source
		want  string
	}{
		{name: "with no sources", given: nil, want: "Found 0 devices\n"},
		{
			name:  "with empty address",
			given: []Source{{Name: "CAM1"}},
			want:  "Found 1 devices\nDevice CAM1 with 1 configurations\n  address: unknown\n",
		},
		{
			name:  "with blank address",
			given: []Source{{Name: "CAM1", Address: " "}},
			want:  "Found 1 devices\nDevice CAM1 with 1 configurations\n  address:  \n",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := WriteReport(buf, tt.given); err != nil {
				t.Fatalf("got error %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteReportParsesBack(t *testing.T) {
	sources := []Source{
		{Name: "HOST (NDI Output)", Address: "[fe80::1]:5961"},
		{Name: "CAM2"},
	}

	buf := &bytes.Buffer{}
	if err := WriteReport(buf, sources); err != nil {
		t.Fatalf("got error %v", err)
	}

	got, err := ParseReport(buf)
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	if diff := deep.Equal(got, sources); diff != nil {
		t.Error(diff)
	}
}
