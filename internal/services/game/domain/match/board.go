// Package match holds the tic-tac-toe game domain: board modeling, the
// pure fold that replays the event log into game state, and the decision
// logic for the authoritative move path.
package match

// Mark is one of the two symbols a participant plays as.
type Mark string

const (
	// MarkNone is an empty cell or unassigned result.
	MarkNone Mark = ""
	// MarkX moves first after every reset.
	MarkX Mark = "X"
	// MarkO moves second.
	MarkO Mark = "O"
)

// FirstMark is the mark that moves first after any reset.
const FirstMark = MarkX

// ParseMark returns the mark for a payload field, or false if the field
// is not a valid mark.
func ParseMark(value string) (Mark, bool) {
	switch Mark(value) {
	case MarkX:
		return MarkX, true
	case MarkO:
		return MarkO, true
	default:
		return MarkNone, false
	}
}

// Opponent returns the opposite mark.
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkNone
	}
}

// Board is the 3x3 grid in row-major order.
type Board [9]Mark

// winLines are the 8 winning cell triples: 3 rows, 3 columns, 2 diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Result is the outcome of a board position.
type Result string

const (
	// ResultNone means the game is still in progress.
	ResultNone Result = ""
	// ResultDraw means the board is full with no winning line.
	ResultDraw Result = "draw"
	// ResultWinX and ResultWinO name the winning mark.
	ResultWinX Result = "X"
	ResultWinO Result = "O"
)

// Outcome inspects the board and returns its result and, for a win, the
// cell indices of the winning line.
func (b Board) Outcome() (Result, []int) {
	for _, line := range winLines {
		mark := b[line[0]]
		if mark != MarkNone && b[line[1]] == mark && b[line[2]] == mark {
			return Result(mark), []int{line[0], line[1], line[2]}
		}
	}
	if b.Full() {
		return ResultDraw, nil
	}
	return ResultNone, nil
}

// Full reports whether every cell is occupied.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == MarkNone {
			return false
		}
	}
	return true
}

// ValidCell reports whether the index addresses a board cell.
func ValidCell(cell int) bool {
	return cell >= 0 && cell <= 8
}
