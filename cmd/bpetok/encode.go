package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [text...]",
		Short: "Print the token ids of text (stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := openTokenizer()
			if err != nil {
				return err
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			ids, err := tok.Encode(text)
			if err != nil {
				return err
			}

			if jsonOutput {
				return newJSONDoc().
					set("profile", tok.Name()).
					set("tokens", ids).
					set("count", len(ids)).
					write(cmd)
			}

			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatUint(uint64(id), 10)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return err
		},
	}
}
