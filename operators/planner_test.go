package operators

import (
	"errors"
	"math/rand"
	"testing"
)

func checkPlan(t *testing.T, plan []int64, fileSize, target, minSize int64) {
	t.Helper()
	var sum int64
	for i, budget := range plan {
		if budget <= 0 {
			t.Fatalf("plan(%d, %d, %d)[%d] = %d, want > 0", fileSize, target, minSize, i, budget)
		}
		if i < len(plan)-1 && budget < minSize {
			t.Fatalf("plan(%d, %d, %d)[%d] = %d is below the floor", fileSize, target, minSize, i, budget)
		}
		sum += budget
	}
	if sum != fileSize {
		t.Fatalf("plan(%d, %d, %d) sums to %d", fileSize, target, minSize, sum)
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name                    string
		fileSize, target, floor int64
		want                    []int64
	}{
		{name: "empty file", fileSize: 0, target: 10, floor: 1, want: []int64{}},
		{name: "fits in one chunk", fileSize: 10, target: 10, floor: 1, want: []int64{10}},
		{name: "smaller than target", fileSize: 3, target: 10, floor: 8, want: []int64{3}},
		{name: "even split", fileSize: 12, target: 4, floor: 1, want: []int64{4, 4, 4}},
		{name: "remainder in last", fileSize: 10, target: 3, floor: 1, want: []int64{3, 3, 3, 1}},
		{name: "averaged", fileSize: 11, target: 5, floor: 1, want: []int64{4, 4, 3}},
		{name: "floor forces fewer chunks", fileSize: 10, target: 3, floor: 4, want: []int64{4, 4, 2}},
		{name: "floor larger than file", fileSize: 10, target: 2, floor: 100, want: []int64{10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Plan(tt.fileSize, tt.target, tt.floor)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(plan) != len(tt.want) {
				t.Fatalf("got %v, want %v", plan, tt.want)
			}
			for i := range plan {
				if plan[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", plan, tt.want)
				}
			}
			checkPlan(t, plan, tt.fileSize, tt.target, tt.floor)
		})
	}
}

func TestPlanInvalidTarget(t *testing.T) {
	for _, target := range []int64{0, -1} {
		if _, err := Plan(100, target, 1); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Plan with target %d: got %v, want ErrInvalidConfig", target, err)
		}
	}
	if _, err := Plan(-1, 10, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Plan with negative size: got %v, want ErrInvalidConfig", err)
	}
}

func TestPlanRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for range 2000 {
		fileSize := r.Int63n(1 << 32)
		target := max(fileSize/(1+r.Int63n(200)), 1)
		floor := r.Int63n(target + 1)
		plan, err := Plan(fileSize, target, floor)
		if err != nil {
			t.Fatalf("Plan(%d, %d, %d): %v", fileSize, target, floor, err)
		}
		checkPlan(t, plan, fileSize, target, floor)
		if fileSize == 0 {
			continue
		}
		if want := ceilDiv(fileSize, target); int64(len(plan)) != want {
			t.Fatalf("Plan(%d, %d, %d) has %d chunks, want %d", fileSize, target, floor, len(plan), want)
		}
		for i, budget := range plan {
			if budget > target {
				t.Fatalf("Plan(%d, %d, %d)[%d] = %d exceeds target", fileSize, target, floor, i, budget)
			}
		}
	}
}

func TestChunkSize(t *testing.T) {
	const mib = 1 << 20
	memory := func(n uint64) func() uint64 { return func() uint64 { return n } }
	tests := []struct {
		name     string
		fileSize int64
		opts     Options
		want     int64
	}{
		{
			name:     "explicit target",
			fileSize: 10 * 1024 * mib,
			opts:     Options{TargetChunkSize: 7 * mib, MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 1, AvailableMemory: memory(0)},
			want:     7 * mib,
		},
		{
			name:     "one percent of file",
			fileSize: 5000 * mib,
			opts:     Options{MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 1, AvailableMemory: memory(0)},
			want:     50 * mib,
		},
		{
			name:     "clamped to minimum",
			fileSize: 10 * mib,
			opts:     Options{MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 1, AvailableMemory: memory(0)},
			want:     mib,
		},
		{
			name:     "clamped to maximum",
			fileSize: 100 * 1024 * mib,
			opts:     Options{MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 1, AvailableMemory: memory(0)},
			want:     256 * mib,
		},
		{
			name:     "halved under memory ceiling",
			fileSize: 1600 * mib,
			opts:     Options{MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 2, AvailableMemory: memory(8 * mib)},
			want:     2 * mib,
		},
		{
			name:     "never below minimum",
			fileSize: 1600 * mib,
			opts:     Options{MinChunkSize: mib, MaxChunkSize: 256 * mib, Concurrency: 4, AvailableMemory: memory(1024)},
			want:     mib,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkSize(tt.fileSize, &tt.opts); got != tt.want {
				t.Fatalf("ChunkSize = %d, want %d", got, tt.want)
			}
		})
	}
}
