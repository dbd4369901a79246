package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	TaskNum   int  // 1-based display number
	HasLetter bool // true if a category letter was provided
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. If first arg is all digits → default category reference
// 2. If first arg is <letter><digits> (e.g., p1, b12) → combined reference
// 3. If first arg is single letter and second arg is all digits → separated reference (p 1)
// 4. If first arg is single letter with no second arg → error: task reference required
// 5. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if len(firstArg) > 0 && isLetter(rune(firstArg[0])) {
		letter := rune(firstArg[0])

		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
		}

		if len(firstArg) == 1 {
			if len(args) < 2 {
				return TaskRef{}, ErrTaskRefRequired
			}
			secondArg := args[1]
			if isAllDigits(secondArg) {
				num, err := strconv.Atoi(secondArg)
				if err != nil {
					return TaskRef{}, fmt.Errorf("invalid task reference: %s", secondArg)
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
			}
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// CategoryLetters assigns each category a letter: its initial, or the first
// unused letter when the initial is taken.
func CategoryLetters(categories []string) map[string]rune {
	letters := make(map[string]rune, len(categories))
	used := make(map[rune]bool)
	for _, c := range categories {
		var letter rune
		if c != "" && isLetter(rune(c[0])) && !used[rune(c[0])] {
			letter = rune(c[0])
		} else {
			for l := 'a'; l <= 'z'; l++ {
				if !used[l] {
					letter = l
					break
				}
			}
		}
		if letter == 0 {
			continue // more than 26 categories
		}
		used[letter] = true
		letters[c] = letter
	}
	return letters
}

// ResolveCategoryByLetter finds the category shown under a letter.
func ResolveCategoryByLetter(categories []string, letter rune) (string, error) {
	for category, l := range CategoryLetters(categories) {
		if l == letter {
			return category, nil
		}
	}
	return "", fmt.Errorf("category letter not found: %c", letter)
}

// resolveTaskArgs turns a task reference and the --category flag into a
// category and display number, printing any error. ok is false on error.
func resolveTaskArgs(cfg *config.Config, categoryFlag string, args []string, errOut io.Writer) (category string, num int, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		if errors.Is(err, ErrTaskRefRequired) {
			fmt.Fprintln(errOut, "error: task reference required")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return "", 0, exitcode.UserError, false
	}

	// --category and a category letter are mutually exclusive
	if categoryFlag != "" && ref.HasLetter {
		fmt.Fprintln(errOut, "error: cannot use both --category and category letter")
		return "", 0, exitcode.UserError, false
	}

	if ref.TaskNum < 1 {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.TaskNum)
		return "", 0, exitcode.UserError, false
	}

	if ref.HasLetter {
		category, err = ResolveCategoryByLetter(cfg.Categories, ref.Letter)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return "", 0, exitcode.UserError, false
		}
		return category, ref.TaskNum, exitcode.Success, true
	}

	category, err = targetCategory(cfg, categoryFlag)
	if err != nil {
		return "", 0, report(errOut, err), false
	}
	return category, ref.TaskNum, exitcode.Success, true
}
