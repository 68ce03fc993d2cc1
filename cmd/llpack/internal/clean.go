package internal

import (
	"context"

	"github.com/spf13/cobra"
)

var cleanTarget string

var cleanCmd = &cobra.Command{
	Use:   "clean [project...]",
	Short: "Remove packages of older versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadProjects(args)
		if err != nil {
			return err
		}
		builder, err := newBuilder(cleanTarget)
		if err != nil {
			return err
		}
		return builder.Clean(context.Background(), defs)
	},
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanTarget, "target", "t", "", "Target format (required)")
	cleanCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(cleanCmd)
}
