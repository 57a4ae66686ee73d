// craftfolio turns a tradesperson's account of a finished job into a
// polished portfolio page through a multi-subagent conversational core.
//
// Usage:
//
//	craftfolio serve                     # MCP server over stdio
//	craftfolio turn <project> <message>  # run one conversational turn
//	craftfolio state <project>           # print the project record
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"craftfolio/internal/config"
	"craftfolio/internal/logging"
	"craftfolio/internal/mcpserver"
	"craftfolio/internal/tools"
)

var (
	configPath string
	dbPath     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "craftfolio",
	Short: "craftfolio - conversational portfolio page builder for trade businesses",
	Long: `craftfolio builds portfolio pages from plain-spoken accounts of finished
jobs. A story subagent extracts the narrative, a design subagent composes the
layout, and a quality subagent keeps an advisory eye on readiness. When no
generation provider is configured, a deterministic extractor keeps every
conversation useful.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(debug || os.Getenv("CRAFTFOLIO_DEBUG") == "1")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		return mcpserver.ServeStdio(app)
	},
}

var turnCmd = &cobra.Command{
	Use:   "turn <project-id> <message...>",
	Short: "Run one conversational turn against a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(tools.OpChatTurn, map[string]any{
			"project_id": args[0],
			"message":    strings.Join(args[1:], " "),
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <project-id>",
	Short: "Print the stored project record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		s, err := app.Store.LoadState(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(s)
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List stored projects, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		ids, err := app.Store.ListProjects(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <project-id> <field> <value...>",
	Short: "Set one narrative field directly (full confidence)",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(tools.OpUpdateField, map[string]any{
			"project_id": args[0],
			"field":      args[1],
			"value":      strings.Join(args[2:], " "),
		})
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions <project-id>",
	Short: "Suggest the next steps for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(tools.OpSuggestActions, map[string]any{
			"project_id": args[0],
		})
	},
}

var readinessCmd = &cobra.Command{
	Use:   "readiness <project-id>",
	Short: "Run an advisory readiness assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(tools.OpCheckReadiness, map[string]any{
			"project_id": args[0],
		})
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose <project-id> [feedback...]",
	Short: "Compose or re-compose the page layout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := map[string]any{"project_id": args[0]}
		if len(args) > 1 {
			input["feedback"] = strings.Join(args[1:], " ")
		}
		return invoke(tools.OpComposeLayout, input)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <project-id>",
	Short: "Generate the final title and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(tools.OpGenerateContent, map[string]any{
			"project_id": args[0],
		})
	},
}

func buildApp(ctx context.Context) (*mcpserver.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if debug {
		cfg.Logging.Debug = true
	}
	return mcpserver.NewApp(ctx, cfg)
}

// invoke runs a single operation through the registry and prints the result.
func invoke(op string, input map[string]any) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Registry.Invoke(ctx, op, input, true)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "craftfolio.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, turnCmd, stateCmd, projectsCmd, setCmd, actionsCmd, readinessCmd, composeCmd, generateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
