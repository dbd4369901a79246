// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"heartwork/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// FormatTask formats a task line.
// Format: "{REF:>4}  [x] {TEXT}[ (daily)]\n" where REF is letter and number, e.g. "p1".
func FormatTask(w io.Writer, letter rune, num int, task service.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	suffix := ""
	if task.IsDefault {
		suffix = " (daily)"
	}
	ref := fmt.Sprintf("%c%d", letter, num)
	fmt.Fprintf(w, "%4s  [%s] %s%s\n", ref, mark, normalizeText(task.Text), suffix)
}

// FormatCategoryHeader formats a category section header.
func FormatCategoryHeader(w io.Writer, category string, letter rune, done, total int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%c)  %d/%d done\n", displayName(category), letter, done, total)
	fmt.Fprintln(w, ListSeparator)
}

// FormatEmpty formats the placeholder of an empty section.
func FormatEmpty(w io.Writer) {
	fmt.Fprintln(w, "      (no tasks)")
}

// FormatNote formats a sticky note line.
// Format: "{N:>4}  {TEXT}\n"
func FormatNote(w io.Writer, num int, note service.Note) {
	fmt.Fprintf(w, "%4d  %s\n", num, normalizeText(note.Text))
}

// FormatImage formats a gallery line.
// Format: "{N:>4}  {FILENAME}  {URL}\n"
func FormatImage(w io.Writer, num int, img service.Image) {
	name := img.Filename
	if strings.TrimSpace(name) == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "%4d  %s  %s\n", num, name, img.URL)
}

// displayName capitalizes a category name for headers.
func displayName(category string) string {
	if category == "" {
		return "(unnamed)"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// normalizeText normalizes task and note text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
