package cmd

import (
	"fmt"

	"github.com/KaramelBytes/eqviz-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repOutput   string
	repDownload bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Open or download the generated PDF report",
	Long: `Without flags the report URL is handed to the system browser and the command
returns right away. With --download (or --output) the report is fetched and saved
to disk, using report_username/report_password for basic auth when configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !repDownload && !cmd.Flags().Changed("output") {
			l := newLauncher()
			l.Launch()
			fmt.Fprintf(out, "✓ Opening report: %s\n", l.URL())
			l.Wait()
			return nil
		}
		dest := repOutput
		if dest == "" {
			dest = currentConfig().ReportOutput
		}
		n, err := newDownloader(currentConfig().HTTPTimeout()).Download(cmd.Context(), dest)
		if err != nil {
			return fmt.Errorf("download report: %w", err)
		}
		fmt.Fprintf(out, "✓ Saved report to %s (%s)\n", dest, utils.HumanBytes(n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "path to save the report (default from config: report_output)")
	reportCmd.Flags().BoolVar(&repDownload, "download", false, "download the report instead of opening it")
}
