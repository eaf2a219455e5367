package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremover/matte"
)

func newPickCmd() *cobra.Command {
	var (
		input string
		x, y  int
	)
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Print the r,g,b colour at a pixel, for use as --color",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadInput(cmd, input)
			if err != nil {
				return err
			}
			key, err := matte.ColorAt(img, x, y)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input image: path, http(s) URL or - for stdin")
	cmd.Flags().IntVar(&x, "x", 0, "pixel column")
	cmd.Flags().IntVar(&y, "y", 0, "pixel row")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
