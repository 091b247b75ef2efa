package io

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func BenchmarkLineWriteRead(b *testing.B) {
	fs := afero.NewOsFs()
	fp := filepath.Join(b.TempDir(), "bench.tmp")
	lines := make([]string, 0, 10_000)
	for i := range 10_000 {
		lines = append(lines, fmt.Sprintf("%d. Something", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f, err := fs.Create(fp)
		if err != nil {
			b.Fatalf("create failed: %v", err)
		}
		writer := NewLineTempFileWriter(f, 64*1024)
		for _, l := range lines {
			if err := writer.WriteLine(l); err != nil {
				b.Fatalf("write failed: %v", err)
			}
		}
		if err := writer.Close(); err != nil {
			b.Fatalf("close failed: %v", err)
		}
		f, err = fs.Open(fp)
		if err != nil {
			b.Fatalf("open failed: %v", err)
		}
		reader := NewLineTempFileReader(f, 64*1024)
		count := 0
		for _, err := range reader.All() {
			if err != nil {
				b.Fatalf("read failed: %v", err)
			}
			count++
		}
		reader.Close()
		if count != len(lines) {
			b.Fatalf("expected %d lines, got %d", len(lines), count)
		}
	}
}
