package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [id...]",
		Short: "Print the text of token ids (whitespace separated on stdin when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := openTokenizer()
			if err != nil {
				return err
			}
			input, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			ids, err := parseIDs(input)
			if err != nil {
				return err
			}

			text, ok := tok.Decode(ids)
			if jsonOutput {
				doc := newJSONDoc().set("profile", tok.Name()).set("valid", ok)
				if ok {
					doc.set("text", text)
				}
				return doc.write(cmd)
			}
			if !ok {
				return fmt.Errorf("tokens do not decode to valid UTF-8 text in %s", tok.Name())
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func parseIDs(s string) ([]uint32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	ids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q", f)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
