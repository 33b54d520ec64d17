package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"litebridge/models"

	"github.com/chzyer/readline"
	"github.com/goccy/go-json"
)

// Shell is the interactive client for a running litebridge server
type Shell struct {
	rl       *readline.Instance
	out      io.Writer
	client   *Client
	profiles *Profiles
	running  bool
}

// NewShell connects to serverURL and prepares a readline prompt.
// profiles may be nil.
func NewShell(ctx context.Context, serverURL string, profiles *Profiles) (*Shell, error) {
	client := NewClient(serverURL)

	if _, err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("cannot connect to server: %w", err)
	}

	// Ctrl+C is reported as ErrInterrupt instead of killing the process
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(client, profiles, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(client *Client, profiles *Profiles, out io.Writer) *Shell {
	if out == nil {
		out = os.Stdout
	}
	return &Shell{
		out:      out,
		client:   client,
		profiles: profiles,
		running:  true,
	}
}

// Start runs the command loop until exit or EOF
func (s *Shell) Start(ctx context.Context) {
	defer s.rl.Close()
	s.printWelcome()

	for s.running {
		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(s.out, "\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		s.handleCommand(ctx, input)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) printWelcome() {
	PrintBanner(s.out, "litebridge - CLI Mode (HTTP Client)")
	s.printf("\nConnected to: %s\n", s.client.BaseURL())
	s.printf("Type 'help' for available commands\n")
}

// handleCommand routes user commands
func (s *Shell) handleCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		s.showHelp()
	case "sample", "samples":
		s.handleSampleCommand(ctx, args)
	case "db", "database":
		s.handleDatabaseCommand(ctx, args)
	case "errors", "logs":
		s.handleErrorsCommand(ctx, args)
	case "stats":
		s.showStats(ctx)
	case "server":
		s.handleServerCommand(ctx, args)
	case "clear":
		s.printf("\033[H\033[2J")
	case "exit", "quit", "q":
		s.printf("\nGoodbye!\n")
		s.running = false
	default:
		s.printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

func (s *Shell) showHelp() {
	s.printf("\n")
	PrintBanner(s.out, "Available Commands")
	s.printf("\n")

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"SAMPLES:", ""},
		{"sample list [--order <col>] [--size <n>] [page]", "List samples (prefix the column with '-' for descending)"},
		{"sample show <id>", "Show sample details"},
		{"sample add", "Add a sample (interactive)"},
		{"sample set <id> <column>=<value>...", "Update columns of a sample (value null clears)"},
		{"sample delete <id>", "Delete a sample"},
		{"", ""},
		{"DATABASE:", ""},
		{"db integrity", "Run an integrity check"},
		{"db checkpoint [passive|truncate]", "Checkpoint the WAL"},
		{"db backup", "Refresh the backup copy"},
		{"db deposit", "Move the current files aside"},
		{"db retrieve", "Rebuild from backup and deposits"},
		{"", ""},
		{"DIAGNOSTICS:", ""},
		{"errors list", "List recorded database errors"},
		{"errors show <id>", "Show an error in full"},
		{"errors clear", "Clear recorded errors"},
		{"stats", "Show database and process metrics"},
		{"", ""},
		{"SYSTEM:", ""},
		{"server list|use <name>|add <name> <url> [desc]|remove <name>", "Manage server profiles"},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if cmd[0] != "" {
			s.printf("  %-50s %s\n", cmd[0], cmd[1])
		} else {
			s.printf("\n")
		}
	}
}

func (s *Shell) handleSampleCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.printf("Usage: sample <list|show|add|set|delete> [args]\n")
		return
	}

	switch args[0] {
	case "list", "ls":
		s.listSamples(ctx, args[1:])
	case "show", "get":
		if id, valid := s.parseID(args, "sample show <id>"); valid {
			s.showSample(ctx, id)
		}
	case "add", "create":
		s.addSample(ctx)
	case "set", "update":
		if id, valid := s.parseID(args, "sample set <id> <column>=<value>..."); valid {
			s.updateSample(ctx, id, args[2:])
		}
	case "delete", "del", "rm":
		if id, valid := s.parseID(args, "sample delete <id>"); valid {
			s.deleteSample(ctx, id)
		}
	default:
		s.printf("Unknown sample command: %s\n", args[0])
	}
}

func (s *Shell) parseID(args []string, usage string) (int64, bool) {
	if len(args) < 2 {
		s.printf("Usage: %s\n", usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		s.printf("Invalid ID: %s\n", args[1])
		return 0, false
	}
	return id, true
}

func (s *Shell) listSamples(ctx context.Context, args []string) {
	parsed, err := parseListArgs(args)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}

	result, err := s.client.ListSamples(ctx, parsed.Page, parsed.PageSize, parsed.Order)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	if result.Total == 0 {
		s.printf("No samples stored.\n")
		return
	}

	totalPages := (result.Total + int64(parsed.PageSize) - 1) / int64(parsed.PageSize)
	s.printf("\n")
	PrintBanner(s.out, fmt.Sprintf("Samples (Page %d/%d, Total: %d)", parsed.Page, totalPages, result.Total))
	s.printf("\n")

	s.printf("%-8s %-30s %-12s %-12s %-20s\n", "ID", "Description", "Part1", "Part2", "Customer")
	s.printf("%s\n", strings.Repeat("-", 86))
	for _, sample := range result.Items {
		s.printf("%-8d %-30s %-12s %-12s %-20s\n",
			sample.ID,
			truncate(deref(sample.Description), 30),
			formatNullable(sample.MultiUniquePart1),
			formatNullable(sample.MultiUniquePart2),
			truncate(formatCustomer(sample.MyClass), 20),
		)
	}
}

func (s *Shell) showSample(ctx context.Context, id int64) {
	sample, err := s.client.GetSample(ctx, id)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}

	s.printf("\n")
	PrintBanner(s.out, fmt.Sprintf("Sample #%d", sample.ID))
	s.printf("\n")
	s.printf("Description: %s\n", deref(sample.Description))
	s.printf("Customer:    %s\n", formatCustomer(sample.MyClass))
	s.printf("Part1:       %s\n", formatNullable(sample.MultiUniquePart1))
	s.printf("Part2:       %s\n", formatNullable(sample.MultiUniquePart2))
	if sample.Note != "" {
		s.printf("Note:        %s\n", string(sample.Note))
	}
}

func (s *Shell) addSample(ctx context.Context) {
	s.printf("\n")
	PrintBanner(s.out, "Add New Sample (Interactive)")
	s.printf("\nPress Ctrl+C at any prompt to abort\n")

	var req models.SampleCreate

	for req.ID == 0 {
		idStr, cancelled := s.readInputWithCancel("ID (required)", "")
		if cancelled {
			s.printf("\n❌ Operation cancelled\n")
			return
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id == 0 {
			s.printf("A non-zero integer ID is required!\n")
			continue
		}
		req.ID = id
	}

	description, cancelled := s.readInputWithCancel("Description (optional)", "")
	if cancelled {
		s.printf("\n❌ Operation cancelled\n")
		return
	}
	if description != "" {
		req.Description = &description
	}

	note, cancelled := s.readInputWithCancel("Note (optional, stored encrypted)", "")
	if cancelled {
		s.printf("\n❌ Operation cancelled\n")
		return
	}
	req.Note = note

	replace := strings.EqualFold(s.readInput("Replace an existing sample? (yes/no)", "no"), "yes")

	id, err := s.client.CreateSample(ctx, req, replace)
	if err != nil {
		s.printf("Error creating sample: %v\n", err)
		return
	}
	s.printf("\n✓ Sample stored! ID: %d\n", id)
}

func (s *Shell) updateSample(ctx context.Context, id int64, assignments []string) {
	req, err := parseAssignments(assignments)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	sample, err := s.client.UpdateSample(ctx, id, req)
	if err != nil {
		s.printf("Error updating sample: %v\n", err)
		return
	}
	s.printf("✓ Sample %d updated (%s)\n", sample.ID, strings.Join(req.Columns, ", "))
}

func (s *Shell) deleteSample(ctx context.Context, id int64) {
	confirm := s.readInput(fmt.Sprintf("Delete sample %d? (yes/no)", id), "no")
	if !isYes(confirm) {
		s.printf("Cancelled.\n")
		return
	}
	if err := s.client.DeleteSample(ctx, id); err != nil {
		s.printf("Error deleting sample: %v\n", err)
		return
	}
	s.printf("✓ Sample deleted successfully!\n")
}

func (s *Shell) handleDatabaseCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.printf("Usage: db <integrity|checkpoint|backup|deposit|retrieve>\n")
		return
	}

	switch args[0] {
	case "integrity", "check":
		corrupted, err := s.client.CheckIntegrity(ctx)
		if err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		if corrupted {
			s.printf("✗ Database is corrupted. Use 'db retrieve' to rebuild it.\n")
			return
		}
		s.printf("✓ Integrity check passed\n")
	case "checkpoint":
		mode := "passive"
		if len(args) > 1 {
			mode = args[1]
		}
		if err := s.client.Checkpoint(ctx, mode); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ %s checkpoint done\n", mode)
	case "backup":
		if err := s.client.Backup(ctx); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ Backup refreshed\n")
	case "deposit":
		if !isYes(s.readInput("Move the current database aside? (yes/no)", "no")) {
			s.printf("Cancelled.\n")
			return
		}
		if err := s.client.Deposit(ctx); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ Database deposited\n")
	case "retrieve":
		score, err := s.client.Retrieve(ctx)
		if err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ Retrieve finished, score %.2f\n", score)
	default:
		s.printf("Unknown db command: %s\n", args[0])
	}
}

func (s *Shell) handleErrorsCommand(ctx context.Context, args []string) {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list", "ls":
		s.listErrors(ctx)
	case "show", "get":
		if len(args) < 2 {
			s.printf("Usage: errors show <id>\n")
			return
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			s.printf("Invalid ID: %s\n", args[1])
			return
		}
		s.showError(ctx, id)
	case "clear":
		if !isYes(s.readInput("Clear all error logs? (yes/no)", "no")) {
			s.printf("Cancelled.\n")
			return
		}
		if err := s.client.ClearErrorLogs(ctx); err != nil {
			s.printf("Error clearing logs: %v\n", err)
			return
		}
		s.printf("✓ Error logs cleared successfully!\n")
	default:
		s.printf("Unknown errors command: %s\n", sub)
	}
}

func (s *Shell) listErrors(ctx context.Context) {
	logs, err := s.client.GetErrorLogs(ctx)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	if len(logs) == 0 {
		s.printf("No errors recorded.\n")
		return
	}

	s.printf("\n")
	PrintBanner(s.out, fmt.Sprintf("Database Errors (Total: %d)", len(logs)))
	s.printf("\n")
	s.printf("%-6s %-10s %-8s %-6s %-50s\n", "ID", "Time", "Level", "Code", "Message")
	s.printf("%s\n", strings.Repeat("-", 84))
	for _, entry := range logs {
		s.printf("%-6d %-10s %-8s %-6d %-50s\n",
			entry.ID,
			entry.Timestamp.Format("15:04:05"),
			entry.Level,
			entry.Code,
			truncate(entry.Message, 50),
		)
	}
	s.printf("\nUse 'errors show <id>' to view details\n")
}

func (s *Shell) showError(ctx context.Context, id int) {
	entry, err := s.client.GetErrorLogByID(ctx, id)
	if err != nil {
		s.printf("Error log not found: %d\n", id)
		return
	}

	s.printf("\n")
	PrintBanner(s.out, fmt.Sprintf("Error #%d", entry.ID))
	s.printf("\n")
	s.printf("Time:     %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
	s.printf("Level:    %s\n", entry.Level)
	s.printf("Code:     %d\n", entry.Code)
	s.printf("Source:   %s\n", entry.Source)
	s.printf("Path:     %s\n", entry.Path)
	s.printf("Message:  %s\n", entry.Message)
	if entry.SQL != "" {
		s.printf("SQL:      %s\n", truncate(entry.SQL, 1000))
	}
	if entry.Detail != "" {
		s.printf("Detail:   %s\n", entry.Detail)
	}
	if entry.Context != "" {
		s.printf("Context:  %s\n", entry.Context)
	}
}

func (s *Shell) showStats(ctx context.Context) {
	metrics, err := s.client.Metrics(ctx)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}

	s.printf("\n")
	PrintBanner(s.out, "Metrics")
	s.printf("\n")
	for _, section := range []string{"database", "error_logs", "system"} {
		values, _ := metrics[section].(map[string]any)
		if len(values) == 0 {
			continue
		}
		s.printf("%s:\n", strings.ToUpper(section))
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.printf("  %-30s %v\n", k, values[k])
		}
	}
}

func (s *Shell) handleServerCommand(ctx context.Context, args []string) {
	if s.profiles == nil {
		s.printf("Server profiles are not available.\n")
		return
	}
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list", "ls":
		for _, name := range s.profiles.Names() {
			marker := " "
			if name == s.profiles.DefaultServer {
				marker = "*"
			}
			p := s.profiles.Servers[name]
			s.printf("%s %-15s %-35s %s\n", marker, name, p.URL, p.Description)
		}
	case "use":
		if len(args) < 2 {
			s.printf("Usage: server use <name>\n")
			return
		}
		profile, err := s.profiles.Server(args[1])
		if err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		client := NewClient(profile.URL)
		if _, err := client.HealthCheck(ctx); err != nil {
			s.printf("Error: cannot reach %s: %v\n", profile.URL, err)
			return
		}
		if err := s.profiles.SetDefault(args[1]); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.client = client
		s.printf("✓ Connected to %s\n", profile.URL)
	case "add":
		if len(args) < 3 {
			s.printf("Usage: server add <name> <url> [description]\n")
			return
		}
		if err := s.profiles.AddServer(args[1], args[2], strings.Join(args[3:], " ")); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ Server '%s' saved\n", args[1])
	case "remove", "rm":
		if len(args) < 2 {
			s.printf("Usage: server remove <name>\n")
			return
		}
		if err := s.profiles.RemoveServer(args[1]); err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		s.printf("✓ Server '%s' removed\n", args[1])
	default:
		s.printf("Unknown server command: %s\n", args[0])
	}
}

// readInput reads user input with an optional default. Without a
// terminal the default is returned.
func (s *Shell) readInput(prompt, defaultValue string) string {
	value, _ := s.readInputWithCancel(prompt, defaultValue)
	return value
}

// readInputWithCancel reads input and reports Ctrl+C as cancellation
func (s *Shell) readInputWithCancel(prompt, defaultValue string) (string, bool) {
	if s.rl == nil {
		return defaultValue, defaultValue == ""
	}
	if defaultValue != "" {
		s.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, defaultValue))
	} else {
		s.rl.SetPrompt(fmt.Sprintf("%s: ", prompt))
	}

	line, err := s.rl.Readline()
	s.rl.SetPrompt("> ")

	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", true
		}
		return defaultValue, false
	}

	input := strings.TrimSpace(line)
	if input == "" && defaultValue != "" {
		return defaultValue, false
	}
	return input, false
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatNullable(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

func formatCustomer(c *models.Customer) string {
	if c == nil {
		return "-"
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "?"
	}
	return string(data)
}
