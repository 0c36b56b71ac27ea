package filedict

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/sagerenn/dictd/internal/dict"
)

// parseTSV reads "word<delim>definition" lines. Blank lines and lines
// starting with '#' are skipped.
func parseTSV(r io.Reader, delimiter string) ([]dict.Entry, error) {
	var out []dict.Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, def, ok := strings.Cut(line, delimiter)
		if !ok {
			continue
		}
		out = append(out, dict.Entry{Word: word, Definition: def})
	}
	return out, scanner.Err()
}

func parseJSON(r io.Reader) ([]dict.Entry, error) {
	var entries []dict.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseDSL reads the ABBYY Lingvo layout: a headword at column zero followed
// by indented definition lines, cards separated by blank lines.
func parseDSL(r io.Reader) ([]dict.Entry, error) {
	var (
		out      []dict.Entry
		headword string
		defLines []string
	)
	flush := func() {
		if headword != "" && len(defLines) > 0 {
			out = append(out, dict.Entry{Word: headword, Definition: strings.Join(defLines, "\n")})
		}
		defLines = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			headword = ""
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if headword != "" {
				defLines = append(defLines, strings.TrimSpace(line))
			}
			continue
		}
		flush()
		headword = strings.TrimSpace(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}
