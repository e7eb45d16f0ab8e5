package game

import (
	"testing"
)

func TestDistributeNumbers_Distinct(t *testing.T) {
	for n := 3; n <= 100; n++ {
		numbers, err := DistributeNumbers(n)
		if err != nil {
			t.Fatalf("DistributeNumbers(%d) returned error: %v", n, err)
		}
		if len(numbers) != n {
			t.Fatalf("DistributeNumbers(%d) returned %d numbers", n, len(numbers))
		}

		seen := make(map[int]bool, n)
		for _, num := range numbers {
			if num < NumberMin || num > NumberMax {
				t.Errorf("DistributeNumbers(%d) produced out-of-range number %d", n, num)
			}
			if seen[num] {
				t.Errorf("DistributeNumbers(%d) produced duplicate number %d", n, num)
			}
			seen[num] = true
		}
	}
}

func TestDistributeNumbers_FullRange(t *testing.T) {
	numbers, err := DistributeNumbers(100)
	if err != nil {
		t.Fatalf("DistributeNumbers(100) returned error: %v", err)
	}

	// With n equal to the range size every number must appear exactly once.
	seen := make(map[int]bool, 100)
	for _, num := range numbers {
		seen[num] = true
	}
	if len(seen) != 100 {
		t.Errorf("Expected all 100 numbers to be used, got %d distinct", len(seen))
	}
}

func TestDistributeNumbers_OutOfRange(t *testing.T) {
	if _, err := DistributeNumbers(101); err == nil {
		t.Error("DistributeNumbers(101) should fail, the range only holds 100 distinct numbers")
	}
	if _, err := DistributeNumbers(0); err == nil {
		t.Error("DistributeNumbers(0) should fail")
	}
	if _, err := DistributeNumbers(-1); err == nil {
		t.Error("DistributeNumbers(-1) should fail")
	}
}
