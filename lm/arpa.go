package lm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads an ARPA file from disk.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	model, err := LoadARPA(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load language model %s: %w", path, err)
	}
	return model, nil
}

// LoadARPA reads a language model in ARPA format.
// Base-10 log probabilities are converted to natural log.
func LoadARPA(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	foundData := false
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "\\data\\" {
			foundData = true
			break
		}
	}
	if !foundData {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing \\data\\ section")
	}

	maxOrder := 0
	line := ""
	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		parts := strings.SplitN(line[len("ngram "):], "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed count line %q", line)
		}
		order, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed count line %q: %w", line, err)
		}
		if order > maxOrder {
			maxOrder = order
		}
	}
	if maxOrder == 0 {
		return nil, fmt.Errorf("no n-gram counts in \\data\\ section")
	}
	model := NewModel(maxOrder)

	order := 0
	for {
		switch {
		case line == "\\end\\":
			return model, nil
		case strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:"))
			if err != nil || n < 1 || n > maxOrder {
				return nil, fmt.Errorf("unexpected section %q", line)
			}
			order = n
		case line == "":
		default:
			if order == 0 {
				return nil, fmt.Errorf("n-gram line %q outside of a section", line)
			}
			if err := parseNGramLine(model, order, line); err != nil {
				return nil, fmt.Errorf("parse n-gram line %q: %w", line, err)
			}
		}
		if !scanner.Scan() {
			break
		}
		line = strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("missing \\end\\ marker")
}

func parseNGramLine(model *Model, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return fmt.Errorf("too few fields for %d-gram", order)
	}
	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse log prob: %w", err)
	}
	logBackoff := 0.0
	if len(fields) > order+1 {
		logBackoff, err = strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("parse backoff: %w", err)
		}
	}
	model.Add(fields[1:order+1], logProb*math.Ln10, logBackoff*math.Ln10)
	return nil
}
