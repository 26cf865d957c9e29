package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kaizengine/shopfloor/internal/config"
	"github.com/kaizengine/shopfloor/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View production run logs",
	Long: `View and filter logs for production runs.

By default, shows logs from the run directory under the current project.
Use flags to filter and format the output.

Examples:
  # Show last 50 lines
  shopfloor logs

  # Show all logs
  shopfloor logs -n 0

  # Follow logs in real-time
  shopfloor logs -f

  # Filter by log level
  shopfloor logs --level warn

  # Show logs for a single work order
  shopfloor logs --work-order 3

  # Show logs from the last hour
  shopfloor logs --since 1h

  # Search for specific patterns
  shopfloor logs --grep "error|failed"

  # Export filtered logs to a file
  shopfloor logs --level error -o errors.csv --format csv`,
	RunE: runLogs,
}

var (
	logsDir       string
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsWorkOrder string
	logsStage     string
	logsRunID     string
	logsOutput    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsDir, "dir", "d", "", "Project directory (default: current directory)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsWorkOrder, "work-order", "", "Filter by work order index")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Filter by stage (routing/production/verification/assembly)")
	logsCmd.Flags().StringVar(&logsRunID, "run", "", "Filter by run ID")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Export filtered logs to a file instead of printing")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format (json/text/csv)")
}

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// levelColor returns the ANSI color code for a log level
func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return colorGray
	case logging.LevelInfo:
		return colorBlue
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelError:
		return colorRed
	default:
		return colorReset
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry *logging.LogEntry) string {
	var sb strings.Builder

	// Timestamp
	sb.WriteString(colorGray)
	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Format("15:04:05.000"))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Level with color
	sb.WriteString(" ")
	sb.WriteString(levelColor(entry.Level))
	sb.WriteString("[")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Message
	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	// Context fields (work_order, stage, etc.)
	if entry.WorkOrder != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("work_order=")
		sb.WriteString(entry.WorkOrder)
		sb.WriteString(colorReset)
	}
	if entry.Stage != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("stage=")
		sb.WriteString(entry.Stage)
		sb.WriteString(colorReset)
	}

	// Extra fields
	for key, value := range entry.Attrs {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(colorReset)
		sb.WriteString(fmt.Sprintf("%v", value))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir := logsDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	cfg := config.Get()
	runDir := cfg.Paths.ResolveRunDir(dir)
	logPath := filepath.Join(runDir, "debug.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No logs found under %s\n", runDir)
		fmt.Fprintln(cmd.OutOrStdout(), "Logs are written when a run starts with logging enabled.")
		return nil
	}

	filter, err := buildLogFilter()
	if err != nil {
		return err
	}

	var grepRegex *regexp.Regexp
	if logsGrep != "" {
		grepRegex, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	if logsFollow {
		return followLogs(logPath, filter, grepRegex)
	}

	entries, err := logging.AggregateLogs(runDir)
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}

	filtered := logging.FilterLogs(entries, filter)
	filtered = grepEntries(filtered, grepRegex)

	if logsTail > 0 && len(filtered) > logsTail {
		filtered = filtered[len(filtered)-logsTail:]
	}

	if logsOutput != "" {
		if err := logging.ExportLogEntries(filtered, logsOutput, logsFormat); err != nil {
			return fmt.Errorf("failed to export logs: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(filtered), logsOutput)
		return nil
	}

	for i := range filtered {
		fmt.Fprintln(cmd.OutOrStdout(), formatLogEntry(&filtered[i]))
	}

	if len(filtered) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching log entries found.")
	}

	return nil
}

// buildLogFilter translates flag values into a LogFilter.
func buildLogFilter() (logging.LogFilter, error) {
	filter := logging.LogFilter{
		WorkOrder: logsWorkOrder,
		Stage:     logsStage,
		RunID:     logsRunID,
	}

	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}

	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return filter, fmt.Errorf("invalid duration format: %w", err)
		}
		filter.StartTime = time.Now().Add(-duration)
	}

	return filter, nil
}

// grepEntries keeps entries whose message or attribute values match the regex.
func grepEntries(entries []logging.LogEntry, grepRegex *regexp.Regexp) []logging.LogEntry {
	if grepRegex == nil {
		return entries
	}
	var kept []logging.LogEntry
	for _, entry := range entries {
		searchText := entry.Message
		for _, v := range entry.Attrs {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if grepRegex.MatchString(searchText) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// followLogs implements tail -f behavior for the log file
func followLogs(logPath string, filter logging.LogFilter, grepRegex *regexp.Regexp) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	// Seek to end of file
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Printf("Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry, err := logging.ParseLogEntry(line)
		if err != nil {
			// If we can't parse as JSON, display raw line
			fmt.Println(line)
			continue
		}

		matched := logging.FilterLogs([]logging.LogEntry{entry}, filter)
		matched = grepEntries(matched, grepRegex)
		if len(matched) == 0 {
			continue
		}

		fmt.Println(formatLogEntry(&entry))
	}
}
