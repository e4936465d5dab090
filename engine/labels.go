package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	iface "EdgeTpuDetServer/interface"

	"golang.org/x/text/encoding/htmlindex"
)

// LoadLabels reads a label file, with or without index numbers.
//
// When the first token of the first line is a number every line must be
// "<index> <label>"; otherwise the line position is the index.
func LoadLabels(path, encoding string) (iface.Labels, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q: %w", ErrIO, encoding, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	lines, err := readLines(enc.NewDecoder().Reader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	return parseLabels(lines)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// CRLF files
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func parseLabels(lines []string) (iface.Labels, error) {
	labels := iface.Labels{}
	if len(lines) == 0 {
		return labels, nil
	}

	first, _, _ := strings.Cut(lines[0], " ")
	if !isDigits(first) {
		for i, line := range lines {
			labels[i] = strings.TrimSpace(line)
		}
		return labels, nil
	}

	for i, line := range lines {
		index, label, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing label in %q", ErrParse, i+1, line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(index))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad index %q", ErrParse, i+1, index)
		}
		labels[id] = strings.TrimSpace(label)
	}
	return labels, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
