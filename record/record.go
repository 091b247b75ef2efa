// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package record defines how a line of text becomes a sortable record.
// The sort engine never inspects lines itself, it asks a Comparator for a Key
// and applies a Policy to lines the comparator rejects.
package record

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("paloo_sort: malformed record")

// Key is the value a comparator derives from a line.
// Keys order by Text (byte-wise) and then by ID.
type Key struct {
	Text string
	ID   int64
}

func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.Text, other.Text); c != 0 {
		return c
	}
	return cmp.Compare(k.ID, other.ID)
}

// Record is a single line together with its key. Records are immutable once parsed.
type Record struct {
	Line string
	Key  Key
}

// Compare orders records by key only, callers needing stability must keep input order for ties.
func Compare(a, b Record) int {
	return a.Key.Compare(b.Key)
}

// Comparator is the pluggable key extraction strategy.
// Key returns an error wrapping ErrMalformed for lines that do not take part in the sort.
type Comparator interface {
	Name() string
	Key(line string) (Key, error)
}

// Lexicographic orders full lines byte-wise, every line is valid.
type Lexicographic struct{}

func (Lexicographic) Name() string { return "lex" }

func (Lexicographic) Key(line string) (Key, error) {
	return Key{Text: line}, nil
}

// IDText orders lines of the form "<id>. <text>" by text first and numeric id second.
// Text comparison is case-sensitive and ordinal.
type IDText struct{}

const idTextSeparator = ". "

func (IDText) Name() string { return "idtext" }

func (IDText) Key(line string) (Key, error) {
	idx := strings.Index(line, idTextSeparator)
	if idx < 0 {
		return Key{}, fmt.Errorf("%w: missing %q separator", ErrMalformed, idTextSeparator)
	}
	idPart := strings.TrimSpace(line[:idx])
	if idPart == "" {
		return Key{}, fmt.Errorf("%w: empty id", ErrMalformed)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: invalid id %q", ErrMalformed, idPart)
	}
	text := line[idx+len(idTextSeparator):]
	if strings.TrimSpace(text) == "" {
		return Key{}, fmt.Errorf("%w: empty text", ErrMalformed)
	}
	return Key{Text: text, ID: id}, nil
}

// ByName resolves the comparator names accepted on the command line.
func ByName(name string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lex", "lexicographic":
		return Lexicographic{}, nil
	case "idtext", "id-text":
		return IDText{}, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q (use lex or idtext)", name)
	}
}
