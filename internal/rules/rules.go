// Package rules holds the pure board evaluation shared by every caller
// that needs a verdict: the write path computes the authoritative terminal
// state with it, and any display-side recomputation must agree with it.
package rules

import (
	"math"

	"github.com/campusware/gameroom-backend/internal/entity"
)

// Result is the verdict for one board. The zero value means the game is
// still ongoing and must never be persisted as finished.
type Result struct {
	Winner entity.Mark
	IsDraw bool
}

func (that Result) Terminal() bool {
	return !that.Winner.IsEmpty() || that.IsDraw
}

// Evaluate - determines whether a mark has completed a line, the board is
// drawn, or play continues. Pure and deterministic: the same board always
// yields the same result.
func Evaluate(board []entity.Mark) Result {
	size := int(math.Sqrt(float64(len(board))))
	if size == 0 || size*size != len(board) {
		// not a square grid, so no line can be complete
		return Result{}
	}

	for _, line := range Lines(size) {
		first := board[line[0]]
		if first.IsEmpty() {
			continue
		}

		complete := true
		for _, cell := range line[1:] {
			if board[cell] != first {
				complete = false
				break
			}
		}

		if complete {
			return Result{Winner: first}
		}
	}

	for _, cell := range board {
		if cell.IsEmpty() {
			return Result{}
		}
	}

	return Result{IsDraw: true}
}

// Lines - enumerates every winning line of a size×size board: rows,
// columns and both diagonals.
func Lines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)

	for row := 0; row < size; row++ {
		line := make([]int, size)
		for col := 0; col < size; col++ {
			line[col] = row*size + col
		}
		lines = append(lines, line)
	}

	for col := 0; col < size; col++ {
		line := make([]int, size)
		for row := 0; row < size; row++ {
			line[row] = row*size + col
		}
		lines = append(lines, line)
	}

	main := make([]int, size)
	anti := make([]int, size)
	for i := 0; i < size; i++ {
		main[i] = i*size + i
		anti[i] = i*size + (size - 1 - i)
	}

	return append(lines, main, anti)
}
