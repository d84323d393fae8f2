package harness

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fleetci/device-harness/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *types.AggregateResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct{}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter() *ConsoleResultFormatter {
	return &ConsoleResultFormatter{}
}

// FormatResults prints one row per device plus the combined run line.
func (f *ConsoleResultFormatter) FormatResults(result *types.AggregateResult) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Device Fleet Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Device", "Status", "Exit", "Duration", "Log", "Report", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Log", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Report", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, o := range result.Outcomes {
		errMsg := ""
		if o.Err != nil {
			errMsg = o.Err.Error()
		}
		t.AppendRow(table.Row{
			o.DeviceName,
			outcomeString(o),
			o.ExitStatus,
			formatDuration(o.Duration),
			o.LogPath,
			o.ReportPath,
			errMsg,
		})
	}

	t.AppendFooter(table.Row{
		"Combined", "", result.ExitStatus, formatDuration(result.Duration), "", "", "",
	})
	t.Render()

	fmt.Println(result.String())
	return nil
}
