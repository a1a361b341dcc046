package profile

import (
	"github.com/bpetok/bpe-openai/internal/config"
	"github.com/bpetok/bpe-openai/internal/pretokenize"
)

const (
	CL100KBase  = "cl100k_base"
	O200KBase   = "o200k_base"
	Voyage3Base = "voyage3_base"
)

// Encoding file URLs. The offline loader serves them from embedded copies
// and never touches the network.
const (
	CL100KURL = "https://openaipublic.blob.core.windows.net/encodings/cl100k_base.tiktoken"
	O200KURL  = "https://openaipublic.blob.core.windows.net/encodings/o200k_base.tiktoken"
)

// Builtin returns the definitions of the supported profiles. The OpenAI
// profiles use the embedded rank files unless a local copy is configured.
// voyage3_base reads the configured tokenizer.json, or downloads it from the
// Hub when that is enabled and no path is set.
func Builtin(cfg config.Config) []Definition {
	var voyage Source = HFFileSource{Path: cfg.Profiles.Voyage3Tokenizer}
	if cfg.Profiles.Voyage3Tokenizer == "" && cfg.Profiles.Voyage3FromHub {
		voyage = HubSource{
			Repo:     cfg.Hub.Repo,
			Token:    cfg.Hub.Token,
			CacheDir: cfg.Hub.CacheDir,
		}
	}

	return []Definition{
		{Name: CL100KBase, Source: tiktokenSource(CL100KURL, cfg.Profiles.CL100KTiktoken, pretokenize.CL100KPattern)},
		{Name: O200KBase, Source: tiktokenSource(O200KURL, cfg.Profiles.O200KTiktoken, pretokenize.O200KPattern)},
		{Name: Voyage3Base, Source: voyage},
	}
}

func tiktokenSource(url, path, pattern string) Source {
	if path != "" {
		return TiktokenFileSource{Path: path, Pattern: pattern}
	}
	return TiktokenSource{URL: url, Pattern: pattern}
}
