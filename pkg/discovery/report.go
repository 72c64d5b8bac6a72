package discovery

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// UnknownAddress is printed in place of a missing source address.
const UnknownAddress = "unknown"

var (
	reportDeviceRegex  = regexp.MustCompile(`^Device\s+(.+?)\s+with\s+\d+\s+configurations?$`)
	reportAddressRegex = regexp.MustCompile(`^address:\s*(.+)$`)
)

// WriteReport writes the line-oriented discovery report of sources to w.
func WriteReport(w io.Writer, sources []Source) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Found %d devices\n", len(sources))
	for _, s := range sources {
		address := s.Address
		if address == "" {
			address = UnknownAddress
		}
		fmt.Fprintf(bw, "Device %s with 1 configurations\n", s.Name)
		fmt.Fprintf(bw, "  address: %s\n", address)
	}

	return errors.Wrap(bw.Flush(), "error writing report")
}

// ParseReport reads back a report written by WriteReport.
// A device line without a following address line is dropped, and an
// "unknown" address is returned as empty.
func ParseReport(r io.Reader) ([]Source, error) {
	sources := []Source{}

	var current *Source
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := reportDeviceRegex.FindStringSubmatch(line); m != nil {
			current = &Source{Name: strings.TrimSpace(m[1])}
			continue
		}

		if m := reportAddressRegex.FindStringSubmatch(line); m != nil && current != nil {
			address := strings.TrimSpace(m[1])
			if address != UnknownAddress {
				current.Address = address
			}
			sources = append(sources, *current)
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading report")
	}

	return sources, nil
}
