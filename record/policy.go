// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package record

import "fmt"

// Policy decides what happens with lines the comparator rejects.
type Policy int

const (
	// SkipMalformed drops rejected lines, the output is the sorted subset of valid lines.
	SkipMalformed Policy = iota
	// FailOnMalformed aborts the sort on the first rejected line.
	FailOnMalformed
)

func (p Policy) String() string {
	switch p {
	case SkipMalformed:
		return "skip"
	case FailOnMalformed:
		return "fail"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// MalformedError reports a rejected line under FailOnMalformed.
type MalformedError struct {
	Source string // file the line was read from
	Line   int64  // 1-based line number within Source
	Text   string
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s:%d: %v: %q", e.Source, e.Line, e.Err, truncate(e.Text, 64))
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Parser turns lines into records, counting and applying the policy to rejected ones.
// A Parser belongs to a single goroutine.
type Parser struct {
	comparator Comparator
	policy     Policy
	source     string
	base       int64
	line       int64
	skipped    int64
}

func NewParser(comparator Comparator, policy Policy, source string) *Parser {
	return NewParserAt(comparator, policy, source, 1)
}

// NewParserAt is NewParser for a slice of source whose first line has the
// 1-based number firstLine. Errors report line numbers within source.
func NewParserAt(comparator Comparator, policy Policy, source string, firstLine int64) *Parser {
	return &Parser{comparator: comparator, policy: policy, source: source, base: max(firstLine, 1) - 1}
}

// Parse returns the record for line. ok is false when the line was skipped.
func (p *Parser) Parse(line string) (rec Record, ok bool, err error) {
	p.line++
	key, err := p.comparator.Key(line)
	if err != nil {
		if p.policy == FailOnMalformed {
			return Record{}, false, &MalformedError{Source: p.source, Line: p.base + p.line, Text: line, Err: err}
		}
		p.skipped++
		return Record{}, false, nil
	}
	return Record{Line: line, Key: key}, true, nil
}

// Skipped returns the number of lines dropped so far.
func (p *Parser) Skipped() int64 {
	return p.skipped
}

// Lines returns the number of lines seen so far.
func (p *Parser) Lines() int64 {
	return p.line
}
