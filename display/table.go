package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Table writes header and rows as a pterm table.
func Table(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// Cell renders a single value for a table cell. Sequences are joined with
// ", " and nil is shown as "-".
func Cell(v interface{}) string {
	switch x := Value(v).(type) {
	case nil:
		return "-"
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Cell(e)
		}
		return strings.Join(parts, ", ")
	case string:
		return strings.ReplaceAll(x, "\n", " ")
	default:
		return fmt.Sprint(x)
	}
}

// Success writes a check-marked confirmation line.
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", pterm.Green("✓"), fmt.Sprintf(format, args...))
}
