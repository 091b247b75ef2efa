package record

import (
	"errors"
	"slices"
	"testing"
)

func TestIDTextKey(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		expected  Key
		malformed bool
	}{
		{"simple", "3. banana", Key{Text: "banana", ID: 3}, false},
		{"text with dots", "17. Something. else", Key{Text: "Something. else", ID: 17}, false},
		{"padded id", " 42 . Apple", Key{Text: "Apple", ID: 42}, false},
		{"negative id", "-5. Cherry", Key{Text: "Cherry", ID: -5}, false},
		{"missing separator", "not-a-record", Key{}, true},
		{"missing space", "12.Apple", Key{}, true},
		{"non numeric id", "abc. Apple", Key{}, true},
		{"empty id", ". Apple", Key{}, true},
		{"empty text", "12. ", Key{}, true},
		{"overflow id", "99999999999999999999. Apple", Key{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := IDText{}.Key(tt.line)
			if tt.malformed {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("expected ErrMalformed for %q, got %v", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.line, err)
			}
			if key != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, key)
			}
		})
	}
}

func TestIDTextOrdering(t *testing.T) {
	lines := []string{"3. banana", "1. apple", "2. apple", "10. Apple", "1. banana"}
	records := make([]Record, 0, len(lines))
	for _, l := range lines {
		key, err := IDText{}.Key(l)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		records = append(records, Record{Line: l, Key: key})
	}
	slices.SortStableFunc(records, Compare)
	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.Line)
	}
	// uppercase sorts before lowercase, ties broken by numeric id
	expected := []string{"10. Apple", "1. apple", "2. apple", "1. banana", "3. banana"}
	if !slices.Equal(expected, got) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestLexicographicIsByteWise(t *testing.T) {
	a, _ := Lexicographic{}.Key("B")
	b, _ := Lexicographic{}.Key("a")
	if a.Compare(b) >= 0 {
		t.Fatalf("expected %q < %q", "B", "a")
	}
	c, _ := Lexicographic{}.Key("10")
	d, _ := Lexicographic{}.Key("9")
	if c.Compare(d) >= 0 {
		t.Fatalf("expected lexicographic, not numeric, order")
	}
}

func TestParserPolicies(t *testing.T) {
	lines := []string{"1. a", "garbage", "2. b"}

	skip := NewParser(IDText{}, SkipMalformed, "input.txt")
	valid := 0
	for _, l := range lines {
		_, ok, err := skip.Parse(l)
		if err != nil {
			t.Fatalf("skip policy must not fail: %v", err)
		}
		if ok {
			valid++
		}
	}
	if valid != 2 || skip.Skipped() != 1 || skip.Lines() != 3 {
		t.Fatalf("expected 2 valid 1 skipped 3 lines, got %d %d %d", valid, skip.Skipped(), skip.Lines())
	}

	strict := NewParser(IDText{}, FailOnMalformed, "input.txt")
	var failure error
	for _, l := range lines {
		if _, _, err := strict.Parse(l); err != nil {
			failure = err
			break
		}
	}
	var malformed *MalformedError
	if !errors.As(failure, &malformed) {
		t.Fatalf("expected MalformedError, got %v", failure)
	}
	if malformed.Line != 2 || malformed.Source != "input.txt" {
		t.Errorf("unexpected position %s:%d", malformed.Source, malformed.Line)
	}
	if !errors.Is(failure, ErrMalformed) {
		t.Errorf("expected error to wrap ErrMalformed")
	}
}

func TestParserAtReportsSourceLine(t *testing.T) {
	parser := NewParserAt(IDText{}, FailOnMalformed, "input.txt", 41)
	if _, ok, err := parser.Parse("1. a"); !ok || err != nil {
		t.Fatalf("expected a valid record, got ok=%v err=%v", ok, err)
	}
	_, _, err := parser.Parse("garbage")
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if malformed.Line != 42 || malformed.Source != "input.txt" {
		t.Errorf("expected input.txt:42, got %s:%d", malformed.Source, malformed.Line)
	}
	if parser.Lines() != 2 {
		t.Errorf("expected 2 lines seen, got %d", parser.Lines())
	}
}

func TestByName(t *testing.T) {
	for name, expected := range map[string]string{"": "lex", "LEX": "lex", "idtext": "idtext", "id-text": "idtext"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if c.Name() != expected {
			t.Errorf("expected %s for %q, got %s", expected, name, c.Name())
		}
	}
	if _, err := ByName("numeric"); err == nil {
		t.Errorf("expected error for unknown comparator")
	}
}
