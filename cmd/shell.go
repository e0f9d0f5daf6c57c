package cmd

import (
	"github.com/KaramelBytes/eqviz-cli/internal/view"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell [file.csv]",
	Short: "Interactive dashboard: select, submit and open the report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}
		l := newLauncher()
		defer l.Wait()
		in := cmd.InOrStdin()
		s := view.NewSession(ctrl, l, newRenderer(), in, cmd.OutOrStdout())
		if len(args) == 1 {
			s.Select(args[0])
		}
		return s.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
