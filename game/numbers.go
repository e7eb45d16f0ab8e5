package game

import (
	"fmt"
	"math/rand"
)

const (
	// NumberMin and NumberMax bound the hidden numbers handed out each round.
	NumberMin = 1
	NumberMax = 100
)

// DistributeNumbers 为 n 名玩家生成互不相同的隐藏数字.
// Rejection sampling: draw uniformly from [NumberMin, NumberMax] until the
// draw is unused. The range comfortably exceeds any legal roster, so this
// terminates quickly.
func DistributeNumbers(n int) ([]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("cannot distribute numbers to %d players", n)
	}
	if n > NumberMax-NumberMin+1 {
		return nil, fmt.Errorf("cannot distribute %d distinct numbers from [%d, %d]", n, NumberMin, NumberMax)
	}

	numbers := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for len(numbers) < n {
		num := rand.Intn(NumberMax-NumberMin+1) + NumberMin
		if seen[num] {
			continue
		}
		seen[num] = true
		numbers = append(numbers, num)
	}
	return numbers, nil
}
