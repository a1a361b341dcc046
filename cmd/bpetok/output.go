package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
)

// jsonDoc accumulates fields of a JSON result, keeping the first error.
type jsonDoc struct {
	raw []byte
	err error
}

func newJSONDoc() *jsonDoc {
	return &jsonDoc{raw: []byte("{}")}
}

func (d *jsonDoc) set(path string, value interface{}) *jsonDoc {
	if d.err != nil {
		return d
	}
	d.raw, d.err = sjson.SetBytes(d.raw, path, value)
	return d
}

func (d *jsonDoc) write(cmd *cobra.Command) error {
	if d.err != nil {
		return fmt.Errorf("encode json output: %w", d.err)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), string(d.raw))
	return err
}
