package parse

// Group is a run of lines belonging to one record.
type Group struct {
	// Start is the index of the group's first line in the input slice.
	Start int
	Lines []string
}

type groupState int

const (
	// collecting appends the line to the current group.
	collecting groupState = iota
	// flushAndRestart closes the current group and opens a new one with
	// the line.
	flushAndRestart
)

// GroupLines splits lines into record groups. A boundary line starts a new
// group unless the current group is still empty. Lines before the first
// boundary form their own group.
func GroupLines(lines []string, isBoundary func(string) bool) []Group {
	var groups []Group
	var current Group

	for i, line := range lines {
		state := collecting
		if isBoundary(line) && len(current.Lines) > 0 {
			state = flushAndRestart
		}

		switch state {
		case flushAndRestart:
			groups = append(groups, current)
			current = Group{Start: i, Lines: []string{line}}
		case collecting:
			if len(current.Lines) == 0 {
				current.Start = i
			}
			current.Lines = append(current.Lines, line)
		}
	}
	if len(current.Lines) > 0 {
		groups = append(groups, current)
	}
	return groups
}
