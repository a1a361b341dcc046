package main

import (
	"fmt"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/cobra"

	"github.com/bpetok/bpe-openai/internal/profile"
)

func newFetchCmd() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the voyage3_base tokenizer.json from the HuggingFace Hub",
		Long: "Download tokenizer.json from the HuggingFace Hub into the hub cache, check that it loads, " +
			"and print its path. Point profiles.voyage3_tokenizer at the path to use it offline.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if repo == "" {
				repo = activeCfg.Hub.Repo
			}

			log.Infof("downloading tokenizer.json from %s", repo)
			path, err := profile.FetchTokenizer(repo, activeCfg.Hub.Token, activeCfg.Hub.CacheDir)
			if err != nil {
				return err
			}

			store, err := profile.HFFileSource{Path: path}.Load(profile.Voyage3Base)
			if err != nil {
				return fmt.Errorf("downloaded %s but it does not load: %w", path, err)
			}

			if jsonOutput {
				return newJSONDoc().
					set("repo", repo).
					set("path", path).
					set("entries", store.Entries()).
					write(cmd)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "HuggingFace repository (defaults to hub.repo)")

	return cmd
}
