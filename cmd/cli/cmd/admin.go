package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show job queue counts and the running job",
	Run: func(cmd *cobra.Command, args []string) {
		qs, err := newClient().QueueStatus()
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Printf("Pending: %d  Running: %d  Completed: %d  Failed: %d  Cancelled: %d  Total: %d\n",
			qs.Pending, qs.Running, qs.Completed, qs.Failed, qs.Cancelled, qs.Total)
		if j := qs.ActiveJob; j != nil {
			cmd.Printf("Active: job %s for tournament %d on worker %s, started %s\n",
				j.ID, j.TournamentID, derefString(j.WorkerID), formatTimeWithRelative(j.StartedAt))
		} else {
			cmd.Println("Active: none")
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show worker, job and tournament health",
	Run: func(cmd *cobra.Command, args []string) {
		h, err := newClient().Health()
		if err != nil {
			printError(cmd, err)
			return
		}

		overall := colorGreen + h.SystemHealth + colorReset
		if h.SystemHealth != "healthy" {
			overall = colorRed + h.SystemHealth + colorReset
		}
		cmd.Printf("%sSystem:%s       %s\n", colorDim, colorReset, overall)
		cmd.Printf("%sMonitoring:%s   %v\n", colorDim, colorReset, h.MonitoringActive)
		cmd.Printf("%sWorkers:%s      %d total, %d active, %d healthy, %d unhealthy\n", colorDim, colorReset,
			h.Workers.Total, h.Workers.Active, h.Workers.Healthy, h.Workers.Unhealthy)
		cmd.Printf("%sJobs:%s         %d total, %d running, %d pending, %d failed\n", colorDim, colorReset,
			h.Jobs.Total, h.Jobs.Running, h.Jobs.Pending, h.Jobs.Failed)
		cmd.Printf("%sTournaments:%s  %d running, %d pending\n", colorDim, colorReset,
			h.Tournaments.Running, h.Tournaments.Pending)
	},
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List workers and their heartbeat health",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		workers, err := newClient().ListWorkers(status)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(workers) == 0 {
			cmd.Println("No workers found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tHOST\tSTATUS\tHEALTHY\tJOB\tDONE/FAILED\tLAST HEARTBEAT")
		for _, wk := range workers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%d/%d\t%s ago\n",
				wk.ID, wk.Hostname, wk.Status, wk.Healthy, derefString(wk.CurrentJobID),
				wk.JobsCompleted, wk.JobsFailed, relativeTime(wk.LastHeartbeat))
		}
		w.Flush()
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List tournament jobs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := newClient().ListJobs(status, limit)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(jobs) == 0 {
			cmd.Println("No jobs found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tTOURNAMENT\tSTATUS\tPRIORITY\tRETRIES\tWORKER\tERROR")
		for _, j := range jobs {
			errMsg := ""
			if j.Error != nil {
				errMsg = truncate(*j.Error, 50)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d/%d\t%s\t%s\n",
				j.ID, j.TournamentID, j.Status, j.Priority, j.RetryCount, j.MaxRetries, derefString(j.WorkerID), errMsg)
		}
		w.Flush()
	},
}

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Show whether any tournament or job needs recovery",
	Run: func(cmd *cobra.Command, args []string) {
		rs, err := newClient().RecoveryStatus()
		if err != nil {
			printError(cmd, err)
			return
		}

		if rs.NeedsRecovery {
			cmd.Printf("%sRecovery needed%s (%d orphaned tournaments)\n", colorYellow, colorReset, rs.Orphaned)
		} else {
			cmd.Printf("%sNo recovery needed%s\n", colorGreen, colorReset)
		}
		printCounts(cmd, "Tournaments", rs.Tournaments)
		printCounts(cmd, "Jobs", rs.Jobs)
		printCounts(cmd, "Workers", rs.Workers)
	},
}

func printCounts(cmd *cobra.Command, label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmd.Printf("%s%s:%s", colorDim, label, colorReset)
	for _, k := range keys {
		cmd.Printf(" %s=%d", k, counts[k])
	}
	cmd.Println()
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Force cleanup of a stuck tournament or a dead worker",
}

var cleanupTournamentCmd = &cobra.Command{
	Use:   "tournament [tournament_id]",
	Short: "Cancel the active jobs of a stuck tournament",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		res, err := newClient().ForceCleanupTournament(id)
		if err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ %s\n", res.Message)
	},
}

var cleanupWorkerCmd = &cobra.Command{
	Use:   "worker [worker_id]",
	Short: "Mark a worker inactive and fail the job it holds",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := newClient().ForceCleanupWorker(args[0])
		if err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("✓ %s\n", res.Message)
	},
}

func init() {
	workersCmd.Flags().String("status", "", "Filter by status: active, inactive, crashed")
	jobsCmd.Flags().String("status", "", "Filter by status: pending, running, completed, failed, cancelled")
	jobsCmd.Flags().Int("limit", 0, "Maximum number of jobs (server default 50)")

	cleanupCmd.AddCommand(cleanupTournamentCmd, cleanupWorkerCmd)
	rootCmd.AddCommand(queueCmd, healthCmd, workersCmd, jobsCmd, recoveryCmd, cleanupCmd)
}
