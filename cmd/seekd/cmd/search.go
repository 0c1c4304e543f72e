package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the search command.
func newSearchCmd(serverURL *string) *cobra.Command {
	var (
		mode         string
		limit        int
		minScore     float64
		repositories []string
		directories  []string
		folder       string
		extension    string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed sources",
		Long: `Search registered sources with keyword, semantic, or hybrid retrieval.

Hybrid mode fuses both retrieval arms with reciprocal rank fusion and is
the default.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			var resp struct {
				Results []struct {
					RelPath      string  `json:"rel_path"`
					AbsPath      string  `json:"abs_path"`
					Score        float64 `json:"score"`
					SourceType   string  `json:"source_type"`
					Kind         string  `json:"kind"`
					KeywordRank  int     `json:"keyword_rank"`
					SemanticRank int     `json:"semantic_rank"`
				} `json:"results"`
				TotalResults int    `json:"total_results"`
				SearchTimeMS int64  `json:"search_time_ms"`
				Mode         string `json:"mode"`
				Degraded     bool   `json:"degraded"`
			}
			err := newClient(*serverURL).post("/search/"+mode, map[string]any{
				"query":     query,
				"limit":     limit,
				"min_score": minScore,
				"filters": map[string]any{
					"repositories": repositories,
					"directories":  directories,
					"folder":       folder,
					"extension":    extension,
				},
			}, &resp)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%2d. %-50s %.3f\n", i+1, r.AbsPath, r.Score)
			}
			fmt.Fprintf(out, "\n%d results in %dms (%s", resp.TotalResults, resp.SearchTimeMS, resp.Mode)
			if resp.Degraded {
				fmt.Fprint(out, ", degraded")
			}
			fmt.Fprintln(out, ")")
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "hybrid", "Retrieval mode: keyword, semantic, or hybrid")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Drop results below this normalized score")
	cmd.Flags().StringSliceVar(&repositories, "repo", nil, "Restrict to named repository sources")
	cmd.Flags().StringSliceVar(&directories, "dir", nil, "Restrict to named directory sources")
	cmd.Flags().StringVar(&folder, "folder", "", "Restrict to a folder prefix")
	cmd.Flags().StringVar(&extension, "ext", "", "Restrict to a file extension")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}
