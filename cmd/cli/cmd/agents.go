package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"gomokuplane/pkg/api"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Register and list agents",
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new agent",
	Long: `Register an agent that can be entered into tournaments.

Kinds:
  simple    built-in heuristic player
  llm       asks a chat-completion endpoint for every move
  process   external program speaking the line protocol on stdin/stdout

Example:
  gomokuctl agents create --name greedy --kind simple
  gomokuctl agents create --name bot --kind process --agent-config '{"command":["./bot"]}'`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		kind, _ := flags.GetString("kind")
		author, _ := flags.GetString("author")
		description, _ := flags.GetString("description")
		version, _ := flags.GetString("version")
		rawConfig, _ := flags.GetString("agent-config")

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}
		if kind == "" {
			cmd.Println("Error: --kind is required")
			return
		}

		req := api.CreateAgentRequest{
			Name:        name,
			Author:      author,
			Description: description,
			Version:     version,
			Kind:        kind,
		}
		if rawConfig != "" {
			if !json.Valid([]byte(rawConfig)) {
				cmd.Println("Error: --agent-config must be valid JSON")
				return
			}
			req.Config = json.RawMessage(rawConfig)
		}

		agent, err := newClient().CreateAgent(req)
		if err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ Agent registered!\nID: %d\nName: %s\nKind: %s\n", agent.ID, agent.Name, agent.Kind)
	},
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Run: func(cmd *cobra.Command, args []string) {
		activeOnly, _ := cmd.Flags().GetBool("active")

		agents, err := newClient().ListAgents(activeOnly)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(agents) == 0 {
			cmd.Println("No agents registered.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tACTIVE\tPLAYED\tW/D/L\tELO")
		for _, a := range agents {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%d\t%d/%d/%d\t%.0f\n",
				a.ID, a.Name, a.Kind, a.IsActive, a.GamesPlayed, a.GamesWon, a.GamesDrawn, a.GamesLost, a.EloRating)
		}
		w.Flush()
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show active agents ranked by rating",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		agents, err := newClient().Leaderboard(limit)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(agents) == 0 {
			cmd.Println("Leaderboard is empty.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RANK\tAGENT\tELO\tPLAYED\tWIN RATE")
		for i, a := range agents {
			fmt.Fprintf(w, "%d\t%s\t%.0f\t%d\t%.1f%%\n", i+1, a.Name, a.EloRating, a.GamesPlayed, a.WinRate*100)
		}
		w.Flush()
	},
}

func init() {
	flags := agentsCreateCmd.Flags()
	flags.StringP("name", "n", "", "Unique agent name (required)")
	flags.StringP("kind", "k", "", "Agent kind: simple, llm or process (required)")
	flags.String("author", "", "Author")
	flags.String("description", "", "Description")
	flags.String("version", "", "Version")
	flags.String("agent-config", "", "Kind specific JSON config")

	agentsListCmd.Flags().Bool("active", false, "Only show active agents")
	leaderboardCmd.Flags().Int("limit", 20, "Maximum number of agents to show")

	agentsCmd.AddCommand(agentsCreateCmd, agentsListCmd)
	rootCmd.AddCommand(agentsCmd, leaderboardCmd)
}
