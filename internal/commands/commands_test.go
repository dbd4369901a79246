package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"heartwork/internal/commands"
	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
	"heartwork/internal/state"
	"heartwork/internal/testutil"
)

// runCommand is a helper to run a command with FakeService in a fresh config dir.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	cfg := config.Defaults(t.TempDir())
	cfg.Quiet = quiet
	return runWithConfig(t, cmd, cfg, svc, args)
}

// runWithConfig runs a command against an existing config.
func runWithConfig(t *testing.T, cmd commands.Command, cfg *config.Config, svc *testutil.FakeService, args []string) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	var s service.Service
	if svc != nil {
		s = svc
	}
	code = cmd.Run(context.Background(), cfg, s, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// resetToday records a reset of every category just now so no command resets.
func resetToday(t *testing.T, cfg *config.Config) {
	t.Helper()

	markers := state.NewMarkers(cfg.StatePath())
	for _, category := range cfg.Categories {
		if err := markers.SetLastReset(category, time.Now()); err != nil {
			t.Fatalf("failed to write marker: %v", err)
		}
	}
}

// freshConfig returns a config whose categories were all reset today.
func freshConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Defaults(t.TempDir())
	resetToday(t, cfg)
	return cfg
}

// seededService returns a FakeService with a small panda list.
func seededService() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask("d1", "panda", "Breakfast", true, false)
	svc.AddTask("u1", "panda", "Water plants", false, false)
	svc.AddTask("d2", "panda", "Lunch", true, true)
	svc.AddTask("b1", "bear", "Call mum", false, false)
	return svc
}

func findTask(svc *testutil.FakeService, id string) (service.Task, bool) {
	for _, t := range svc.AllTasks() {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "heartwork 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "heartwork watch [--bell]", "heartwork reset", "Common flags:", "aliases: list, ls"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q, got:\n%s", want, stdout)
		}
	}
}

// Tests for todos command
func TestTodosCommand_Golden(t *testing.T) {
	cfg := freshConfig(t)
	cmd := &commands.TodosCmd{}
	cmd.SetCategory("panda")

	stdout, stderr, code := runWithConfig(t, cmd, cfg, seededService(), nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	testutil.GoldenString(t, "todos_panda", stdout)
}

func TestTodosCommand_AllCategories(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()

	stdout, _, code := runWithConfig(t, &commands.TodosCmd{}, cfg, svc, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stdout, "Panda (p)  1/3 done") {
		t.Errorf("expected panda header, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "  b1  [ ] Call mum") {
		t.Errorf("expected bear task, got:\n%s", stdout)
	}
	if strings.Index(stdout, "Panda") > strings.Index(stdout, "Bear") {
		t.Error("categories should print in configured order")
	}
	if n := svc.Calls("ResetDefaults"); n != 0 {
		t.Errorf("expected no reset on a list reset today, got %d", n)
	}
}

func TestTodosCommand_FirstRunResetsOnce(t *testing.T) {
	cfg := config.Defaults(t.TempDir())
	svc := testutil.NewFakeService()
	cmd := &commands.TodosCmd{}
	cmd.SetCategory("panda")

	stdout, _, code := runWithConfig(t, cmd, cfg, svc, nil)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if n := svc.Calls("ResetDefaults"); n != 1 {
		t.Errorf("expected 1 reset on first run, got %d", n)
	}
	if !strings.Contains(stdout, "0/4 done") || !strings.Contains(stdout, "Breakfast (daily)") {
		t.Errorf("expected the daily tasks, got:\n%s", stdout)
	}

	// A second run the same day finds the marker
	_, _, code = runWithConfig(t, cmd, cfg, svc, nil)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if n := svc.Calls("ResetDefaults"); n != 1 {
		t.Errorf("expected no second reset, got %d", n)
	}
}

func TestTodosCommand_EmptyListGetsDefaults(t *testing.T) {
	cfg := freshConfig(t)
	svc := testutil.NewFakeService()
	cmd := &commands.TodosCmd{}
	cmd.SetCategory("bear")

	stdout, _, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if n := svc.Calls("CreateTask"); n != 4 {
		t.Errorf("expected 4 creates, got %d", n)
	}
	if !strings.Contains(stdout, "Bear (b)  0/4 done") {
		t.Errorf("expected 4 bear tasks, got:\n%s", stdout)
	}
}

func TestTodosCommand_BackendErrorUsesCache(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()
	cmd := &commands.TodosCmd{}
	cmd.SetCategory("panda")

	if _, _, code := runWithConfig(t, cmd, cfg, svc, nil); code != exitcode.Success {
		t.Fatalf("expected first run to succeed, got %d", code)
	}

	svc.ListTasksErr = fmt.Errorf("connection refused: %w", service.ErrNetwork)
	stdout, stderr, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: failed to load tasks") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if !strings.Contains(stdout, "Water plants") {
		t.Errorf("expected cached list, got:\n%s", stdout)
	}
}

func TestTodosCommand_AuthError(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()
	svc.ListTasksErr = service.ErrUnauthorized

	_, stderr, code := runWithConfig(t, &commands.TodosCmd{}, cfg, svc, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "authentication error, please log in again") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestTodosCommand_UnknownCategory(t *testing.T) {
	cmd := &commands.TodosCmd{}
	cmd.SetCategory("cat")

	_, stderr, code := runCommand(t, cmd, seededService(), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: unknown category: cat") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand(t *testing.T) {
	svc := seededService()
	cmd := &commands.AddCmd{}
	cmd.SetCategory("bear")

	stdout, stderr, code := runWithConfig(t, cmd, freshConfig(t), svc, []string{"Buy", "flowers"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	found := false
	for _, task := range svc.AllTasks() {
		if task.Text == "Buy flowers" {
			found = true
			if task.Category != "bear" || task.IsDefault {
				t.Errorf("unexpected task %+v", task)
			}
		}
	}
	if !found {
		t.Error("task was not created")
	}
}

func TestAddCommand_DefaultCategoryQuiet(t *testing.T) {
	svc := testutil.NewFakeService()
	cfg := freshConfig(t)
	cfg.Quiet = true

	stdout, _, code := runWithConfig(t, &commands.AddCmd{}, cfg, svc, []string{"Water plants"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
	tasks := svc.AllTasks()
	if len(tasks) != 1 || tasks[0].Category != "panda" {
		t.Errorf("expected one panda task, got %+v", tasks)
	}
}

func TestAddCommand_BlankText(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"  "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task text required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("CreateTask"); n != 0 {
		t.Errorf("expected no request, got %d creates", n)
	}
}

// Tests for done command
func TestDoneCommand_Toggles(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()

	// p2 is "Water plants": open dailies sort first
	stdout, stderr, code := runWithConfig(t, &commands.DoneCmd{}, cfg, svc, []string{"p2"})
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "done: Water plants\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if task, _ := findTask(svc, "u1"); !task.Completed {
		t.Error("task should be completed")
	}

	// Completed dailies sort before other completed tasks, so p2 is now Lunch
	stdout, _, code = runWithConfig(t, &commands.DoneCmd{}, cfg, svc, []string{"p", "2"})
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "reopened: Lunch\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestDoneCommand_Reopens(t *testing.T) {
	svc := seededService()

	// Lunch is the only completed panda task and sorts last
	stdout, _, code := runWithConfig(t, &commands.DoneCmd{}, freshConfig(t), svc, []string{"p3"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "reopened: Lunch\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if task, _ := findTask(svc, "d2"); task.Completed {
		t.Error("task should be open again")
	}
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	_, stderr, code := runWithConfig(t, &commands.DoneCmd{}, freshConfig(t), seededService(), []string{"p9"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 9\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDoneCommand_BadReferences(t *testing.T) {
	tests := []struct {
		name     string
		category string
		args     []string
		want     string
	}{
		{"missing", "", nil, "error: task reference required\n"},
		{"unknown letter", "", []string{"z1"}, "error: category letter not found: z\n"},
		{"letter and flag", "bear", []string{"p1"}, "error: cannot use both --category and category letter\n"},
		{"zero", "", []string{"0"}, "error: task number out of range: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seededService()
			cmd := &commands.DoneCmd{}
			cmd.SetCategory(tt.category)

			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stderr)
			}
			if n := svc.Calls("UpdateTask"); n != 0 {
				t.Errorf("expected no update, got %d", n)
			}
		})
	}
}

func TestDoneCommand_UpdateFails(t *testing.T) {
	svc := seededService()
	svc.UpdateTaskErr = fmt.Errorf("timeout: %w", service.ErrNetwork)

	_, stderr, code := runWithConfig(t, &commands.DoneCmd{}, freshConfig(t), svc, []string{"p2"})

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: failed to update task") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if task, _ := findTask(svc, "u1"); task.Completed {
		t.Error("task should be unchanged")
	}
}

// Tests for rm command
func TestRmCommand(t *testing.T) {
	svc := seededService()

	stdout, stderr, code := runWithConfig(t, &commands.RmCmd{}, freshConfig(t), svc, []string{"p2"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if _, ok := findTask(svc, "u1"); ok {
		t.Error("task should have been deleted")
	}
}

func TestRmCommand_DailyTask(t *testing.T) {
	svc := seededService()

	_, stderr, code := runWithConfig(t, &commands.RmCmd{}, freshConfig(t), svc, []string{"p1"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: daily tasks cannot be deleted\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("DeleteTask"); n != 0 {
		t.Errorf("expected no delete request, got %d", n)
	}
}

func TestRmCommand_AlreadyGone(t *testing.T) {
	svc := seededService()
	svc.DeleteTaskErr = fmt.Errorf("task u1: %w", service.ErrNotFound)

	stdout, _, code := runWithConfig(t, &commands.RmCmd{}, freshConfig(t), svc, []string{"p2"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
}

// Tests for reset command
func TestResetCommand_Forced(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()
	cmd := &commands.ResetCmd{}
	cmd.SetCategory("panda")

	stdout, stderr, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if n := svc.Calls("ResetDefaults"); n != 1 {
		t.Errorf("expected 1 reset, got %d", n)
	}
	if task, ok := findTask(svc, "d2"); ok {
		t.Errorf("old daily task should be gone, got %+v", task)
	}
	if _, ok := findTask(svc, "u1"); !ok {
		t.Error("user task should survive a reset")
	}
}

func TestResetCommand_FallbackFails(t *testing.T) {
	cfg := config.Defaults(t.TempDir())
	svc := seededService()
	svc.ResetDefaultsErr = fmt.Errorf("500: %w", service.ErrNetwork)
	svc.CreateTaskErr = fmt.Errorf("500: %w", service.ErrNetwork)
	cmd := &commands.ResetCmd{}
	cmd.SetCategory("panda")

	_, stderr, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: could not reset panda, will retry on next sync\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if _, ok, _ := state.NewMarkers(cfg.StatePath()).LastReset("panda"); ok {
		t.Error("marker should not advance after a failed reset")
	}
}

func TestResetCommand_FailsAfterEarlierReset(t *testing.T) {
	cfg := freshConfig(t)
	before, _, err := state.NewMarkers(cfg.StatePath()).LastReset("panda")
	if err != nil {
		t.Fatal(err)
	}
	svc := seededService()
	svc.ResetDefaultsErr = fmt.Errorf("500: %w", service.ErrNetwork)
	svc.CreateTaskErr = fmt.Errorf("500: %w", service.ErrNetwork)
	cmd := &commands.ResetCmd{}
	cmd.SetCategory("panda")

	stdout, stderr, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: backend error: could not reset panda, will retry on next sync\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	after, _, _ := state.NewMarkers(cfg.StatePath()).LastReset("panda")
	if !after.Equal(before) {
		t.Errorf("marker moved from %v to %v", before, after)
	}
}

func TestResetCommand_Rejected(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()
	svc.ResetDefaultsErr = fmt.Errorf("401: %w", service.ErrUnauthorized)
	cmd := &commands.ResetCmd{}
	cmd.SetCategory("panda")

	_, stderr, code := runWithConfig(t, cmd, cfg, svc, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("CreateTask"); n != 0 {
		t.Errorf("a rejected reset should not fall back, got %d creates", n)
	}
}

// Tests for notes commands
func TestNotesCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddNote("n1", "Love you")
	svc.AddNote("n2", "Dinner at 8")

	stdout, _, code := runCommand(t, &commands.NotesCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	want := "   1  Love you\n   2  Dinner at 8\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
}

func TestNotesCommand_Empty(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.NotesCmd{}, testutil.NewFakeService(), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no notes\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestAddNoteCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.AddNoteCmd{}, svc, []string{"See", "you", "soon"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	notes, _ := svc.ListNotes(context.Background())
	if len(notes) != 1 || notes[0].Text != "See you soon" {
		t.Errorf("unexpected notes %+v", notes)
	}
}

func TestEditNoteCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddNote("n1", "Love you")
	svc.AddNote("n2", "Dinner at 8")

	_, stderr, code := runCommand(t, &commands.EditNoteCmd{}, svc, []string{"2", "Dinner", "at", "9"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	notes, _ := svc.ListNotes(context.Background())
	if notes[1].Text != "Dinner at 9" {
		t.Errorf("note not updated: %+v", notes[1])
	}
}

func TestNoteCommands_BadNumber(t *testing.T) {
	tests := []struct {
		name string
		cmd  commands.Command
		args []string
		want string
	}{
		{"edit missing text", &commands.EditNoteCmd{}, []string{"1"}, "error: note text required\n"},
		{"edit out of range", &commands.EditNoteCmd{}, []string{"5", "x"}, "error: note number out of range: 5\n"},
		{"rm not a number", &commands.RmNoteCmd{}, []string{"abc"}, "error: invalid number: abc\n"},
		{"rm zero", &commands.RmNoteCmd{}, []string{"0"}, "error: invalid number: 0\n"},
		{"rm missing", &commands.RmNoteCmd{}, nil, "error: note number required\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddNote("n1", "Love you")

			_, stderr, code := runCommand(t, tt.cmd, svc, tt.args, false)

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stderr)
			}
		})
	}
}

func TestRmNoteCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddNote("n1", "Love you")
	svc.AddNote("n2", "Dinner at 8")

	stdout, _, code := runCommand(t, &commands.RmNoteCmd{}, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	notes, _ := svc.ListNotes(context.Background())
	if len(notes) != 1 || notes[0].ID != "n2" {
		t.Errorf("unexpected notes %+v", notes)
	}
}

// Tests for gallery commands
func TestGalleryCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddImage("i1", "beach.jpg")
	svc.AddImage("i2", "")

	stdout, _, code := runCommand(t, &commands.GalleryCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	want := "   1  beach.jpg  /uploads/beach.jpg\n   2  (unnamed)  /uploads/\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
}

func TestUploadCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	path := filepath.Join(t.TempDir(), "us.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	stdout, stderr, code := runCommand(t, &commands.UploadCmd{}, svc, []string{path}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok /uploads/us.png\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestUploadCommand_MissingFile(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.UploadCmd{}, svc, []string{filepath.Join(t.TempDir(), "nope.png")}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("UploadImage"); n != 0 {
		t.Errorf("expected no upload, got %d", n)
	}
}

func TestRmImageCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddImage("i1", "beach.jpg")
	svc.AddImage("i2", "hike.jpg")

	stdout, _, code := runCommand(t, &commands.RmImageCmd{}, svc, []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	images, _ := svc.ListImages(context.Background())
	if len(images) != 1 || images[0].ID != "i1" {
		t.Errorf("unexpected images %+v", images)
	}
}

// Tests for status command
func TestStatusCommand(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.StatusCmd{}, testutil.NewFakeService(), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasPrefix(stdout, "logged in as panda\nserver: http://localhost:5000\n") {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

// pingService adds a health endpoint to the fake backend.
type pingService struct {
	*testutil.FakeService
}

func (p pingService) Ping(ctx context.Context) (string, error) {
	return "Heartwork API running", nil
}

func TestStatusCommand_ShowsPing(t *testing.T) {
	var outBuf, errBuf bytes.Buffer
	cfg := config.Defaults(t.TempDir())
	svc := pingService{testutil.NewFakeService()}

	code := (&commands.StatusCmd{}).Run(context.Background(), cfg, svc, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	want := "logged in as panda\nserver: http://localhost:5000\nserver says: Heartwork API running\n"
	if outBuf.String() != want {
		t.Errorf("expected %q, got %q", want, outBuf.String())
	}
}

func TestStatusCommand_Rejected(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.VerifyErr = service.ErrUnauthorized

	_, stderr, code := runCommand(t, &commands.StatusCmd{}, svc, nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: auth error: unauthorized\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for watch command

// safeBuffer is a bytes.Buffer safe for concurrent use.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// closableChannel adds Close to a FakeChannel.
type closableChannel struct {
	*testutil.FakeChannel
	closed bool
}

func (c *closableChannel) Close() error {
	c.closed = true
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchCommand(t *testing.T) {
	cfg := freshConfig(t)
	svc := seededService()
	ch := &closableChannel{FakeChannel: testutil.NewFakeChannel()}

	cmd := &commands.WatchCmd{}
	cmd.SetChannelFactory(func(ctx context.Context, cfg *config.Config) (commands.PushChannel, error) {
		return ch, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut safeBuffer
	done := make(chan int, 1)
	go func() {
		done <- cmd.Run(ctx, cfg, svc, nil, &out, &errOut)
	}()

	waitFor(t, "initial render", func() bool { return strings.Contains(out.String(), "Bear (b)") })

	// The partner checks off Water plants
	snapshot := svc.AllTasks()
	for i := range snapshot {
		if snapshot[i].ID == "u1" {
			snapshot[i].Completed = true
		}
	}
	if err := ch.Emit("taskUpdate", snapshot); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "redraw", func() bool { return strings.Contains(out.String(), "Panda (p)  2/3 done") })

	if err := ch.Emit("newNote", service.Note{ID: "n1", Text: "Miss you"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "note", func() bool { return strings.Contains(out.String(), "New note: Miss you") })

	cancel()
	select {
	case code := <-done:
		if code != exitcode.Success {
			t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}

	if !ch.closed {
		t.Error("channel should be closed on exit")
	}
	if n := ch.Handlers("taskUpdate"); n != 0 {
		t.Errorf("expected listeners removed, got %d", n)
	}
	if errOut.String() != "" {
		t.Errorf("expected no stderr, got %q", errOut.String())
	}
}

func TestWatchCommand_WithoutLiveUpdates(t *testing.T) {
	cfg := freshConfig(t)
	cmd := &commands.WatchCmd{}
	cmd.SetChannelFactory(func(ctx context.Context, cfg *config.Config) (commands.PushChannel, error) {
		return nil, fmt.Errorf("dial: %w", service.ErrNetwork)
	})

	ctx, cancel := context.WithCancel(context.Background())
	var out, errOut safeBuffer
	done := make(chan int, 1)
	go func() {
		done <- cmd.Run(ctx, cfg, seededService(), nil, &out, &errOut)
	}()

	waitFor(t, "initial render", func() bool { return strings.Contains(out.String(), "Bear (b)") })
	cancel()

	if code := <-done; code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasPrefix(errOut.String(), "warning: live updates unavailable") {
		t.Errorf("unexpected stderr %q", errOut.String())
	}
}

func TestWatchCommand_RejectedToken(t *testing.T) {
	cmd := &commands.WatchCmd{}
	cmd.SetChannelFactory(func(ctx context.Context, cfg *config.Config) (commands.PushChannel, error) {
		return nil, fmt.Errorf("connect rejected: %w", service.ErrUnauthorized)
	})

	_, stderr, code := runCommand(t, cmd, seededService(), nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
