package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/app/storage"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the reconciliation status of every connector",
	Long: `Show the persisted status of every connector: the phase of its latest cycle,
the number of cycles run, the last attempt and success times and the counts of the
last completed cycle. The status is read without modifying it, so this command can
run next to a serving process.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("format", "o", "", "Output format (table, json or yaml). Defaults to table on a terminal and json otherwise")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format == "" {
		format = formatJSON
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = formatTable
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	statuses, err := storage.LoadCycleStatuses(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to load connector status: %w", err)
	}

	// Connectors that never ran have no persisted status yet
	for _, conn := range cfg.Connectors {
		if _, ok := statuses[conn.Name]; !ok {
			statuses[conn.Name] = &status.CycleStatus{
				Phase:    status.CyclePhasePending,
				Interval: conn.GetInterval().String(),
			}
		}
	}

	return renderStatuses(cmd.OutOrStdout(), statuses, format)
}

// renderStatuses writes statuses sorted by connector name
func renderStatuses(w io.Writer, statuses map[string]*status.CycleStatus, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(statuses); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		return renderStatusTable(w, statuses)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderStatusTable(w io.Writer, statuses map[string]*status.CycleStatus) error {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	slices.Sort(names)

	table := tablewriter.NewTable(w)
	table.Header("Connector", "Phase", "Cycles", "Last Attempt", "Last Success", "Applied", "Skipped", "Failed", "Message")

	for _, name := range names {
		st := statuses[name]
		applied, skipped, failed := "-", "-", "-"
		if st.LastSummary != nil {
			applied = strconv.Itoa(st.LastSummary.Applied)
			skipped = strconv.Itoa(st.LastSummary.Skipped)
			failed = strconv.Itoa(st.LastSummary.Failed)
		}
		if err := table.Append(
			name,
			string(st.Phase),
			strconv.FormatInt(st.CycleCount, 10),
			formatTime(st.LastAttempt),
			formatTime(st.LastSuccess),
			applied,
			skipped,
			failed,
			st.Message,
		); err != nil {
			return err
		}
	}

	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
