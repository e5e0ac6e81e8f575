package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jjalkak/go-meme-service/internal/search"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [sentence]",
		Short: "Search meme images for a sentence",
		Long: `Search runs the two phase meme search for a sentence.

Examples:
  # Search by sentence
  jjalkak search 월요일 출근하기 싫다

  # Search by explicit keywords, skipping extraction
  jjalkak search --keywords 출근,월요일

  # Output JSON
  jjalkak search --json 퇴근하고 싶다`,
		Args: cobra.ArbitraryArgs,
		RunE: runSearchCmd,
	}

	cmd.Flags().StringSliceP("keywords", "k", nil, "Search these keywords directly")
	cmd.Flags().IntP("count", "n", search.DefaultCount, "Number of results for keyword search")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// searchOutput is the JSON shape of the search command.
type searchOutput struct {
	Sentence  string                `json:"sentence"`
	Keywords  []string              `json:"keywords"`
	Phase     search.Phase          `json:"phase,omitempty"`
	Results   []search.SearchResult `json:"results"`
	SiteLinks []search.SiteLink     `json:"siteLinks,omitempty"`
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	sentence := strings.TrimSpace(strings.Join(args, " "))
	kw, _ := cmd.Flags().GetStringSlice("keywords")
	if sentence == "" && len(kw) == 0 {
		return fmt.Errorf("a sentence or --keywords is required")
	}

	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := searchOutput{Sentence: sentence}
	if len(kw) > 0 {
		n, _ := cmd.Flags().GetInt("count")
		out.Keywords = kw
		out.Phase = search.PhaseKeywords
		out.Results = a.Orchestrator.Search(cmd.Context(), kw, n)
	} else {
		res := a.Orchestrator.FindMemes(cmd.Context(), sentence)
		out.Keywords = res.Keywords.Korean
		out.Phase = res.Phase
		out.Results = res.Results
	}
	if len(out.Results) == 0 {
		out.SiteLinks = search.KoreanSiteLinks(search.DisplayKeywords(out.Keywords, sentence))
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printSearch(cmd.OutOrStdout(), out)
	return nil
}

func printSearch(w io.Writer, out searchOutput) {
	if len(out.Keywords) > 0 {
		fmt.Fprintf(w, "keywords: %s\n", strings.Join(out.Keywords, ", "))
	}
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "no images found, try searching manually:")
		for _, l := range out.SiteLinks {
			fmt.Fprintf(w, "  %s  %s\n", l.Name, l.URL)
		}
		return
	}
	for i, r := range out.Results {
		fmt.Fprintf(w, "%2d. %s\n", i+1, r.OriginalURL)
	}
}
