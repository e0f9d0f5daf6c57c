package cmd

import (
	"fmt"

	"github.com/KaramelBytes/eqviz-cli/internal/result"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
	"github.com/KaramelBytes/eqviz-cli/internal/view"
	"github.com/spf13/cobra"
)

var (
	upJSON       bool
	upOpenReport bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload a CSV file for analysis and show the summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := upload.SelectFromPath(args[0])
		if err != nil {
			return err
		}
		ctrl, err := newController()
		if err != nil {
			return err
		}
		ctrl.SelectFile(f)
		_ = ctrl.Submit(cmd.Context())
		snap := ctrl.Snapshot()

		out := cmd.OutOrStdout()
		if upJSON && snap.Phase == upload.Succeeded {
			fmt.Fprintln(out, result.Dump(snap.Result))
		} else {
			url := ""
			if snap.Phase == upload.Succeeded {
				url = reportURL()
			}
			if err := newRenderer().Render(out, view.BuildModel(snap, url)); err != nil {
				return err
			}
		}
		if snap.Phase == upload.Failed {
			return fmt.Errorf("upload failed: %w", snap.Err)
		}
		if upOpenReport {
			l := newLauncher()
			l.Launch()
			fmt.Fprintf(out, "✓ Opening report: %s\n", l.URL())
			l.Wait()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&upJSON, "json", false, "print the analysis result as JSON instead of the dashboard")
	uploadCmd.Flags().BoolVar(&upOpenReport, "open-report", false, "open the PDF report in the browser after a successful upload")
}
