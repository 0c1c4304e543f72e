package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// newSourcesCmd creates the sources command group.
func newSourcesCmd(serverURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage indexed sources",
	}

	cmd.AddCommand(newSourcesListCmd(serverURL))
	cmd.AddCommand(newSourcesAddCmd(serverURL))
	cmd.AddCommand(newSourcesUpdateCmd(serverURL))
	cmd.AddCommand(newSourcesRemoveCmd(serverURL))
	cmd.AddCommand(newSourcesReindexCmd(serverURL))

	return cmd
}

// parseSourceID parses a source id argument.
func parseSourceID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, seekerrors.InvalidInput("invalid source id: %q", arg)
	}
	return id, nil
}

func newSourcesListCmd(serverURL *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Sources []struct {
					ID      int64  `json:"id"`
					Type    string `json:"type"`
					Path    string `json:"path"`
					Name    string `json:"name"`
					Enabled bool   `json:"enabled"`
				} `json:"sources"`
				Total int `json:"total"`
			}
			if err := newClient(*serverURL).get("/sources", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if resp.Total == 0 {
				fmt.Fprintln(out, "No sources registered.")
				return nil
			}
			for _, src := range resp.Sources {
				state := "enabled"
				if !src.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(out, "%4d  %-10s  %-9s  %-20s  %s\n",
					src.ID, src.Type, state, src.Name, src.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSourcesAddCmd(serverURL *string) *cobra.Command {
	var (
		name        string
		priority    int
		notes       string
		autoReindex bool
		reindexNow  bool
	)

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a source",
		Long: `Register a directory as a source. A version-control marker at the root
makes it a repository source; otherwise it is a plain directory source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return seekerrors.InvalidInput("invalid path: %v", err)
			}

			c := newClient(*serverURL)
			var src struct {
				ID   int64  `json:"id"`
				Type string `json:"type"`
				Name string `json:"name"`
			}
			err = c.post("/sources", map[string]any{
				"path":         path,
				"name":         name,
				"priority":     priority,
				"notes":        notes,
				"auto_reindex": autoReindex,
			}, &src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s source %q (id %d)\n", src.Type, src.Name, src.ID)

			if reindexNow {
				return runReindex(cmd, c, src.ID, true)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Source name (defaults to the directory name)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority for ownership tie-breaks among equal-length roots")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().BoolVar(&autoReindex, "watch", false, "Reindex automatically on file changes")
	cmd.Flags().BoolVar(&reindexNow, "index", false, "Run a full index pass immediately")

	return cmd
}

func newSourcesUpdateCmd(serverURL *string) *cobra.Command {
	var (
		name     string
		enabled  string
		priority int
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a source's mutable fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSourceID(args[0])
			if err != nil {
				return err
			}

			patch := map[string]any{}
			if cmd.Flags().Changed("name") {
				patch["name"] = name
			}
			if cmd.Flags().Changed("enabled") {
				on, err := strconv.ParseBool(enabled)
				if err != nil {
					return seekerrors.InvalidInput("--enabled must be true or false")
				}
				patch["enabled"] = on
			}
			if cmd.Flags().Changed("priority") {
				patch["priority"] = priority
			}
			if cmd.Flags().Changed("notes") {
				patch["notes"] = notes
			}
			if len(patch) == 0 {
				return seekerrors.InvalidInput("nothing to update")
			}

			err = newClient(*serverURL).do("PATCH", fmt.Sprintf("/sources/%d", id), patch, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated source %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&enabled, "enabled", "", "Enable or disable the source (true/false)")
	cmd.Flags().IntVar(&priority, "priority", 0, "New priority")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")

	return cmd
}

func newSourcesRemoveCmd(serverURL *string) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a source",
		Long: `Unregister a source. Without --purge its documents remain in the
indexes until another source's pass reclaims or removes them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSourceID(args[0])
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/sources/%d", id)
			if purge {
				path += "?purge=true"
			}
			if err := newClient(*serverURL).do("DELETE", path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed source %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also remove the source's documents from both indexes")
	return cmd
}

func newSourcesReindexCmd(serverURL *string) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "reindex <id>",
		Short: "Run an indexing pass over a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSourceID(args[0])
			if err != nil {
				return err
			}
			return runReindex(cmd, newClient(*serverURL), id, full)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Reindex every file, ignoring change detection")
	return cmd
}

func runReindex(cmd *cobra.Command, c *client, id int64, full bool) error {
	path := fmt.Sprintf("/sources/%d/reindex", id)
	if full {
		path += "?full=true"
	}

	var resp struct {
		Success      bool   `json:"success"`
		Reason       string `json:"reason"`
		FilesIndexed int64  `json:"files_indexed"`
	}
	if err := c.post(path, map[string]any{}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return seekerrors.Newf(seekerrors.KindInternal, "index pass failed: %s", resp.Reason)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files from source %d\n", resp.FilesIndexed, id)
	return nil
}
