package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [text...]",
		Short: "Print the number of tokens in text (stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := openTokenizer()
			if err != nil {
				return err
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			n, err := tok.Count(text)
			if err != nil {
				return err
			}
			if jsonOutput {
				return newJSONDoc().set("profile", tok.Name()).set("count", n).write(cmd)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}
