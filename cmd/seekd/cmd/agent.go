package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/workflow"
)

// workflowFromYAML parses an inline workflow definition. Parsing locally
// gives the user an immediate syntax error instead of a server round trip.
func workflowFromYAML(data []byte) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, seekerrors.InvalidInput("parse workflow: %v", err)
	}
	return &wf, nil
}

// newAgentCmd creates the agent command group.
func newAgentCmd(serverURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Execute skills and workflow templates",
	}

	cmd.AddCommand(newAgentExecuteCmd(serverURL))
	cmd.AddCommand(newAgentWorkflowCmd(serverURL))
	cmd.AddCommand(newAgentTemplatesCmd(serverURL))
	cmd.AddCommand(newAgentSkillsCmd(serverURL))
	cmd.AddCommand(newAgentInfoCmd(serverURL))

	return cmd
}

// parseParams converts repeated key=value flags into a parameter map.
// Values parse as JSON when possible so numbers and booleans keep their
// types; everything else stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, seekerrors.InvalidInput("parameter %q must be key=value", pair)
		}
		var val any
		if err := json.Unmarshal([]byte(raw), &val); err != nil {
			val = raw
		}
		params[key] = val
	}
	return params, nil
}

// printExecution renders a workflow execution record.
func printExecution(cmd *cobra.Command, exec map[string]any, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(exec)
	}

	status, _ := exec["status"].(string)
	fmt.Fprintf(out, "Workflow %v: %s\n", exec["workflow"], status)
	if steps, ok := exec["steps"].([]any); ok {
		for _, raw := range steps {
			step := raw.(map[string]any)
			fmt.Fprintf(out, "  %-12v %-16v %v\n", step["step_id"], step["skill"], step["status"])
			if msg, ok := step["error"].(string); ok && msg != "" {
				fmt.Fprintf(out, "               %s\n", msg)
			}
		}
	}
	if output, ok := exec["output"].(map[string]any); ok {
		if report, ok := output["report"].(string); ok {
			fmt.Fprintln(out)
			fmt.Fprintln(out, report)
			return nil
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err == nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, string(data))
		}
	}
	if status != "ok" {
		return seekerrors.Newf(seekerrors.KindInternal, "workflow finished with status %s", status)
	}
	return nil
}

func newAgentExecuteCmd(serverURL *string) *cobra.Command {
	var (
		params     []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "execute <template>",
		Short: "Execute a workflow template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			var exec map[string]any
			err = newClient(*serverURL).post("/agent/execute", map[string]any{
				"template":   args[0],
				"parameters": parameters,
			}, &exec)
			if err != nil {
				return err
			}
			return printExecution(cmd, exec, jsonOutput)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Template parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the execution record as JSON")
	return cmd
}

func newAgentWorkflowCmd(serverURL *string) *cobra.Command {
	var (
		params     []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "workflow <file>",
		Short: "Execute an inline workflow from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return seekerrors.InvalidInput("read workflow file: %v", err)
			}
			wf, err := workflowFromYAML(data)
			if err != nil {
				return err
			}
			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			var exec map[string]any
			err = newClient(*serverURL).post("/agent/execute-workflow", map[string]any{
				"workflow":   wf,
				"parameters": parameters,
			}, &exec)
			if err != nil {
				return err
			}
			return printExecution(cmd, exec, jsonOutput)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Workflow parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the execution record as JSON")
	return cmd
}

func newAgentTemplatesCmd(serverURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and manage workflow templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Templates []struct {
					Name        string `json:"name"`
					Description string `json:"description"`
					Category    string `json:"category"`
				} `json:"templates"`
			}
			if err := newClient(*serverURL).get("/agent/templates", &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range resp.Templates {
				fmt.Fprintf(out, "%-20s %-12s %s\n", t.Name, t.Category, t.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tmpl map[string]any
			if err := newClient(*serverURL).get("/agent/templates/"+args[0], &tmpl); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tmpl)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "register <file>",
		Short: "Register a template from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return seekerrors.InvalidInput("read template file: %v", err)
			}
			var tmpl struct {
				Name string `json:"name"`
			}
			if err := newClient(*serverURL).post("/agent/templates", data, &tmpl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered template %q\n", tmpl.Name)
			return nil
		},
	})

	return cmd
}

func newAgentSkillsCmd(serverURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List available skills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Skills []struct {
					Name        string `json:"name"`
					Description string `json:"description"`
				} `json:"skills"`
			}
			if err := newClient(*serverURL).get("/agent/skills", &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, sk := range resp.Skills {
				fmt.Fprintf(out, "%-20s %s\n", sk.Name, sk.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one skill's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info map[string]any
			if err := newClient(*serverURL).get("/agent/skills/"+args[0], &info); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	})

	return cmd
}

func newAgentInfoCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show agent status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var info map[string]any
			if err := newClient(*serverURL).get("/agent/info", &info); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}
