package cmd

import (
	"fmt"
	"text/tabwriter"

	"gomokuplane/pkg/api"

	"github.com/spf13/cobra"
)

var tournamentsCmd = &cobra.Command{
	Use:     "tournaments",
	Aliases: []string{"t"},
	Short:   "Create, inspect and stop tournaments",
}

var tournamentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a round-robin tournament and queue it",
	Long: `Create a tournament between the given agents. Every ordered pair plays
one game, so n agents play n*(n-1) games. Only one tournament runs at a time.

Example:
  gomokuctl tournaments create --agents 1,2,3
  gomokuctl tournaments create --agents 4,5 --name "rematch" --priority 10`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		rawIDs, _ := flags.GetString("agents")
		priority, _ := flags.GetInt("priority")

		ids, err := parseIDs(rawIDs)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if len(ids) < 2 {
			cmd.Println("Error: --agents needs at least 2 agent ids")
			return
		}

		result, err := newClient().CreateTournament(api.CreateTournamentRequest{
			Name:     name,
			AgentIDs: ids,
			Priority: priority,
		})
		if err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ Tournament queued!\nID: %d\nName: %s\nGames: %d\nJob: %s\n",
			result.Tournament.ID, result.Tournament.Name, result.Tournament.TotalGames, result.Job.ID)
	},
}

var tournamentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tournaments, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := newClient().ListTournaments(status, limit)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(list) == 0 {
			cmd.Println("No tournaments found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tGAMES\tPROGRESS\tCREATED")
		for _, t := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%.0f%%\t%s ago\n",
				t.ID, truncate(t.Name, 30), t.Status, t.CompletedGames, t.TotalGames, t.Progress*100, relativeTime(t.CreatedAt))
		}
		w.Flush()
	},
}

var tournamentsStatusCmd = &cobra.Command{
	Use:   "status [tournament_id]",
	Short: "Show a tournament with its job and games",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		t, err := newClient().GetTournament(id)
		if err != nil {
			printError(cmd, err)
			return
		}
		printTournament(cmd, t)
	},
}

var tournamentsCancelCmd = &cobra.Command{
	Use:   "cancel [tournament_id]",
	Short: "Cancel a pending or running tournament",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if err := newClient().CancelTournament(id); err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ Tournament %d cancelled\n", id)
	},
}

var tournamentsDeleteCmd = &cobra.Command{
	Use:   "delete [tournament_id]",
	Short: "Delete a tournament, its games and its jobs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if err := newClient().DeleteTournament(id); err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ Tournament %d deleted\n", id)
	},
}

func printTournament(cmd *cobra.Command, t *api.TournamentDetail) {
	cmd.Printf("%sTournament:%s  %s%d%s %s\n", colorDim, colorReset, colorBold, t.ID, colorReset, t.Name)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(t.Status))
	cmd.Printf("%sProgress:%s    %d/%d games %s(%.0f%%)%s\n", colorDim, colorReset,
		t.CompletedGames, t.TotalGames, colorCyan, t.Progress*100, colorReset)
	cmd.Printf("%sAgents:%s      %v\n", colorDim, colorReset, t.AgentIDs)
	cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(t.StartedAt))
	if t.StartedAt != nil && t.CompletedAt != nil {
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(t.CompletedAt),
			colorCyan, formatDuration(t.CompletedAt.Sub(*t.StartedAt)), colorReset)
	} else {
		cmd.Printf("%sFinished:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(t.CompletedAt))
	}

	if j := t.Job; j != nil {
		cmd.Printf("%sJob:%s         %s %s (attempt %d/%d, worker %s)\n", colorDim, colorReset,
			j.ID, colorizeStatus(j.Status), j.RetryCount+1, j.MaxRetries+1, derefString(j.WorkerID))
		if j.Error != nil {
			cmd.Printf("%sJob Error:%s   %s%s%s\n", colorDim, colorReset, colorRed, *j.Error, colorReset)
		}
	}

	if len(t.Games) == 0 {
		return
	}
	cmd.Println()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "GAME\tBLACK\tWHITE\tRESULT\tMOVES\tENDED BY")
	for _, g := range t.Games {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%s\n", g.ID, g.BlackAgentID, g.WhiteAgentID, g.Result, g.MoveCount, g.Termination)
	}
	w.Flush()
}

func init() {
	flags := tournamentsCreateCmd.Flags()
	flags.StringP("agents", "a", "", "Comma separated agent ids (required, at least 2)")
	flags.StringP("name", "n", "", "Tournament name (default: timestamped)")
	flags.IntP("priority", "p", 0, "Queue priority 0-100, higher runs first")

	tournamentsListCmd.Flags().String("status", "", "Filter by status: pending, running, completed, failed, cancelled")
	tournamentsListCmd.Flags().Int("limit", 0, "Maximum number of tournaments (server default 50)")

	tournamentsCmd.AddCommand(tournamentsCreateCmd, tournamentsListCmd, tournamentsStatusCmd, tournamentsCancelCmd, tournamentsDeleteCmd)
	rootCmd.AddCommand(tournamentsCmd)
}
