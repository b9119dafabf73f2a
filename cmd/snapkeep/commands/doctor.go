package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/config"
	"github.com/thoreinstein/snapkeep/internal/doctor"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/lock"
)

var (
	doctorJSON    bool
	doctorVerbose bool
	doctorDest    string
)

// errDoctorWarnings is a sentinel error for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2.
var errDoctorErrors = errors.New("errors found")

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false,
		"show passed and informational checks too")
	doctorCmd.Flags().StringVar(&doctorDest, "dest", "",
		"destination root (default from config)")
	doctorCmd.MarkFlagsMutuallyExclusive("json", "verbose")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and destination issues",
	Long: `Run diagnostic checks before a backup: the config file, the configured
sources, whether the destination root is writable and supports hard links,
whether another backup is running, and whether stored versions are complete.

Output modes:
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --json      Machine-readable JSON output
  -q          No output, exit code only

Exit codes:
  0 - No errors or warnings
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Check the configured setup
  snapkeep doctor

  # Check another destination and show every check
  snapkeep doctor --dest /mnt/backup --verbose

  See Also: snapkeep config show`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := flags.Config()
		root, err := flags.DestinationRoot(doctorDest)
		if err != nil {
			return errors.NewUserError(err, "")
		}

		runner := newDoctorRunner(root, cfg, config.Used(), configLoadErr)
		mode := doctorText
		switch {
		case flags.Quiet():
			mode = doctorQuietMode
		case doctorJSON:
			mode = doctorJSONMode
		case doctorVerbose:
			mode = doctorVerboseMode
		}
		return runDoctorWithWriter(cmd.Context(), cmd.OutOrStdout(), runner, mode)
	},
}

type doctorMode int

const (
	doctorText doctorMode = iota
	doctorVerboseMode
	doctorJSONMode
	doctorQuietMode
)

// newDoctorRunner registers the checks for a destination root and config.
func newDoctorRunner(root string, cfg *config.Config, cfgPath string, loadErr error) *doctor.Runner {
	r := doctor.NewRunner()
	r.AddCheck(doctor.NewConfigCheck(cfgPath, loadErr))
	r.AddCheck(doctor.NewSourcesCheck(cfg.Sources))
	r.AddCheck(doctor.NewDestinationCheck(root))
	r.AddCheck(doctor.NewHardLinkCheck(root, cfg.Incremental))
	r.AddCheck(doctor.NewLockCheck(root, lock.DefaultTimeout))
	r.AddCheck(doctor.NewVersionsCheck(root, cfg.MaxVersions, nil))
	return r
}

func runDoctorWithWriter(ctx context.Context, w io.Writer, runner *doctor.Runner, mode doctorMode) error {
	report := runner.Run(ctx)

	switch mode {
	case doctorQuietMode:
	case doctorJSONMode:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "encoding JSON")
		}
	default:
		printDoctorReport(w, report, mode == doctorVerboseMode)
	}

	if report.HasErrors() {
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func printDoctorReport(w io.Writer, report *doctor.Report, showAll bool) {
	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}
		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)
		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
