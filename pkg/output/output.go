package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	json "github.com/json-iterator/go"

	"github.com/Kush1612/BuckIt/pkg/config"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
	FormatText  OutputFormat = "text"
)

var (
	mu       sync.RWMutex
	out      io.Writer = color.Output
	override OutputFormat
)

// SetWriter redirects all output. It returns the previous writer.
func SetWriter(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Writer returns the current output destination
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

// SetFormat forces a format for this process, taking precedence over config.
// An empty format restores the configured one.
func SetFormat(format string) error {
	if format != "" && !ValidateOutputFormat(format) {
		return fmt.Errorf("invalid output format %q (want json, table or text)", format)
	}
	mu.Lock()
	override = OutputFormat(format)
	mu.Unlock()
	return nil
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() OutputFormat {
	mu.RLock()
	forced := override
	mu.RUnlock()
	if forced != "" {
		return forced
	}

	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// IsJSON reports whether machine readable output was requested
func IsJSON() bool {
	return GetOutputFormat() == FormatJSON
}

// Field is one line of a record
type Field struct {
	Key   string
	Value interface{}
}

// Print outputs data in the configured format with optional title
func Print(title string, data interface{}) error {
	if IsJSON() {
		return printJSON(data)
	}
	w := Writer()
	if title != "" {
		color.New(color.Bold).Fprintln(w, title)
	}
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, s)
	return nil
}

// PrintList outputs rows in the configured format. In JSON mode items is
// encoded instead of the rendered rows.
func PrintList(title string, items interface{}, headers []string, rows [][]string) error {
	switch GetOutputFormat() {
	case FormatJSON:
		return printJSON(items)
	case FormatTable:
		printTitle(title)
		PrintTable(headers, rows)
	default:
		printTitle(title)
		printColumns(headers, rows)
	}
	return nil
}

// PrintRecord outputs a single record. In JSON mode data is encoded instead
// of the fields.
func PrintRecord(title string, fields []Field, data interface{}) error {
	switch GetOutputFormat() {
	case FormatJSON:
		return printJSON(data)
	case FormatTable:
		printTitle(title)
		rows := make([][]string, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []string{f.Key, fmt.Sprint(f.Value)})
		}
		PrintTable([]string{"Field", "Value"}, rows)
	default:
		printTitle(title)
		w := Writer()
		bold := color.New(color.Bold)
		for _, f := range fields {
			bold.Fprint(w, f.Key+": ")
			fmt.Fprintf(w, "%v\n", f.Value)
		}
	}
	return nil
}

// PrintTable renders a bordered table
func PrintTable(headers []string, rows [][]string) {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	fmt.Fprintln(Writer(), t.String())
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(Writer(), msg+"\n", args...)
}

// PrintError prints an error message
func PrintError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(Writer(), "Error: "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Writer(), msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Writer(), "Warning: "+msg+"\n", args...)
}

// Println prints a plain line
func Println(args ...interface{}) {
	fmt.Fprintln(Writer(), args...)
}

// Printf prints plain formatted text
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(Writer(), format, args...)
}

func printTitle(title string) {
	if title != "" {
		color.New(color.Bold).Fprintln(Writer(), title)
	}
}

func printJSON(data interface{}) error {
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(Writer(), s)
	return nil
}

func printColumns(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Writer(), 0, 0, 2, ' ', 0)
	if len(headers) > 0 {
		fmt.Fprintln(w, strings.ToUpper(strings.Join(headers, "\t")))
	}
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// FormatAsJSON converts data to JSON string (convenience function)
func FormatAsJSON(data interface{}) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatAsPrettyJSON converts data to pretty JSON string (convenience function)
func FormatAsPrettyJSON(data interface{}) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
