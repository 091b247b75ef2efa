package operators

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"
)

type sliceCursor struct {
	records []record.Record
	pos     int
	closed  int
}

func newSliceCursor(t *testing.T, cmp record.Comparator, lines ...string) *sliceCursor {
	t.Helper()
	c := &sliceCursor{}
	for _, line := range lines {
		key, err := cmp.Key(line)
		if err != nil {
			t.Fatalf("key of %q: %v", line, err)
		}
		c.records = append(c.records, record.Record{Line: line, Key: key})
	}
	return c
}

func (c *sliceCursor) Current() (record.Record, bool) {
	if c.pos >= len(c.records) {
		return record.Record{}, false
	}
	return c.records[c.pos], true
}

func (c *sliceCursor) Advance() error {
	c.pos++
	return nil
}

func (c *sliceCursor) Close() error {
	c.closed++
	return nil
}

type collectWriter struct {
	lines []string
}

func (w *collectWriter) WriteSeq(seq iter.Seq[string]) error {
	for line := range seq {
		w.lines = append(w.lines, line)
	}
	return nil
}

func (w *collectWriter) Flush() error { return nil }
func (w *collectWriter) Close() error { return nil }

var _ io.TempFileWriter[string] = (*collectWriter)(nil)

func TestMergeCursorsTieBreak(t *testing.T) {
	cmp := prefixComparator{}
	cursors := []*sliceCursor{
		newSliceCursor(t, cmp, "a:0", "b:0", "b:1"),
		newSliceCursor(t, cmp),
		newSliceCursor(t, cmp, "a:2", "b:2", "c:2"),
		newSliceCursor(t, cmp, "b:3"),
	}
	generic := make([]Cursor, len(cursors))
	for i, c := range cursors {
		generic[i] = c
	}
	w := &collectWriter{}
	n, err := MergeCursors(context.Background(), generic, w)
	if err != nil {
		t.Fatalf("MergeCursors: %v", err)
	}
	want := []string{"a:0", "a:2", "b:0", "b:1", "b:2", "b:3", "c:2"}
	if !slices.Equal(w.lines, want) || n != int64(len(want)) {
		t.Fatalf("got %v (%d), want %v", w.lines, n, want)
	}
	for i, c := range cursors {
		if c.closed == 0 {
			t.Fatalf("cursor %d was not closed", i)
		}
	}
}

func writeChunks(t *testing.T, fs afero.Fs, chunks [][]string) []string {
	t.Helper()
	paths := make([]string, 0, len(chunks))
	for i, lines := range chunks {
		path := fmt.Sprintf("/chunks/chunk_%03d", i)
		content := strings.Join(lines, "\n")
		if len(lines) > 0 {
			content += "\n"
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestMergeEqualsSortOfConcat(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	words := []string{"Apple", "Banana", "Cherry", "Flower", "Something"}
	var chunks [][]string
	var all []string
	for i := range 7 {
		var lines []string
		// chunk 3 stays empty
		if i != 3 {
			for range r.Intn(300) + 1 {
				lines = append(lines, fmt.Sprintf("%d. %s", r.Intn(50), words[r.Intn(len(words))]))
			}
		}
		all = append(all, lines...)
		slices.SortStableFunc(lines, func(a, b string) int { return compareIDText(t, a, b) })
		chunks = append(chunks, lines)
	}
	fs := afero.NewMemMapFs()
	paths := writeChunks(t, fs, chunks)
	merger := NewMerger(fs, record.IDText{}, 32, 32, zaptest.NewLogger(t))
	n, err := merger.Merge(context.Background(), paths, "/out.txt")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if n != int64(len(all)) {
		t.Fatalf("merged %d lines, want %d", n, len(all))
	}
	slices.SortStableFunc(all, func(a, b string) int { return compareIDText(t, a, b) })
	data, _ := afero.ReadFile(fs, "/out.txt")
	if got := strings.Join(all, "\n") + "\n"; string(data) != got {
		t.Fatalf("merge output differs from sorting the concatenation")
	}
}

func compareIDText(t *testing.T, a, b string) int {
	ka, err := record.IDText{}.Key(a)
	if err != nil {
		t.Fatal(err)
	}
	kb, err := record.IDText{}.Key(b)
	if err != nil {
		t.Fatal(err)
	}
	return ka.Compare(kb)
}

func TestMergeRejectsMalformedChunkLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	paths := writeChunks(t, fs, [][]string{{"1. apple", "garbage"}, {"2. banana"}})
	_, err := NewMerger(fs, record.IDText{}, 0, 0, nil).Merge(context.Background(), paths, "/out.txt")
	if !errors.Is(err, record.ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
	if ok, _ := afero.Exists(fs, "/out.txt"); ok {
		t.Fatalf("output exists after a failed merge")
	}
	entries, _ := afero.ReadDir(fs, "/")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".out.txt.tmp-") {
			t.Fatalf("partial output %s left behind", e.Name())
		}
	}
}

func TestMergeCanceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	paths := writeChunks(t, fs, [][]string{{"a", "c"}, {"b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMerger(fs, record.Lexicographic{}, 0, 0, nil).Merge(ctx, paths, "/out.txt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if ok, _ := afero.Exists(fs, "/out.txt"); ok {
		t.Fatalf("output exists after a canceled merge")
	}
}

func TestChunkStreamMissingFile(t *testing.T) {
	_, err := OpenChunkStream(afero.NewMemMapFs(), "/missing", record.Lexicographic{}, 0)
	if err == nil {
		t.Fatalf("expected an error for a missing chunk")
	}
}
