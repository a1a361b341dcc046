package main

import (
	"fmt"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/cobra"
)

func newProfilesCmd() *cobra.Command {
	var load bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List tokenizer profiles",
		Long:  "List tokenizer profiles. With --load every vocabulary is built to check that its asset is present and consistent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if registry == nil {
				return fmt.Errorf("configuration not loaded")
			}

			doc := newJSONDoc()
			failed := 0
			for i, name := range registry.Names() {
				prefix := fmt.Sprintf("profiles.%d.", i)
				doc.set(prefix+"name", name).set(prefix+"default", name == activeCfg.Profiles.Default)

				if !load {
					if !jsonOutput {
						if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
							return err
						}
					}
					continue
				}

				start := time.Now()
				store, err := registry.Resolve(name)
				elapsed := time.Since(start)
				if err != nil {
					failed++
					log.Errorf("profile %s: %v", name, err)
					doc.set(prefix+"error", err.Error())
					if !jsonOutput {
						if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\tunavailable\n", name); err != nil {
							return err
						}
					}
					continue
				}

				doc.set(prefix+"vocab_size", store.Size()).
					set(prefix+"entries", store.Entries()).
					set(prefix+"load_ms", elapsed.Milliseconds())
				if !jsonOutput {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d entries\tmax %d bytes\t%s\n",
						name, store.Entries(), store.MaxTokenLen(), elapsed.Round(time.Millisecond))
					if err != nil {
						return err
					}
				}
			}

			if jsonOutput {
				if err := doc.write(cmd); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d profile(s) failed to load", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&load, "load", false, "Build each vocabulary and report its size")

	return cmd
}
