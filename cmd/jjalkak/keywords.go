package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewKeywordsCmd creates the keywords command.
func NewKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords [sentence]",
		Short: "Extract search keywords from a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			set := a.Keywords.ExtractKeywords(cmd.Context(), strings.Join(args, " "))
			for _, k := range set.Korean {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
