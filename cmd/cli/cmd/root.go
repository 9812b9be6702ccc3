package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gomokuctl",
	Short: "gomokuctl is a command line tool for running Gomoku tournaments on gomokuplane",
	Long: `gomokuctl is the operator interface for gomokuplane.

gomokuplane runs round-robin Gomoku tournaments between registered agents.
Every tournament becomes a job in a durable queue; a worker claims the job,
plays every game, and checkpoints its progress so a crashed run resumes.

Common workflows:

  Register agents:
    gomokuctl agents create --name greedy --kind simple
    gomokuctl agents create --name mini --kind llm --agent-config '{"model":"gpt-4o-mini"}'

  Start a tournament:
    gomokuctl tournaments create --agents 1,2,3 --name "Friday cup"

  Follow it:
    gomokuctl tournaments status 7
    gomokuctl queue

  Inspect the fleet:
    gomokuctl health
    gomokuctl workers

Configuration:
  Set the API endpoint and credentials via flags, environment variables or a config file:
    GOMOKU_URL      API endpoint (default: http://localhost:8080)
    GOMOKU_TOKEN    Admin token for mutating and /admin routes`,
}

func Execute() error {
	return rootCmd.Execute()
}

func newClient() *Client {
	return NewClient(viper.GetString("url"), viper.GetString("token"))
}

// printError reports err the way every command does.
func printError(cmd *cobra.Command, err error) {
	if apiErr, ok := err.(*APIError); ok {
		cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		return
	}
	cmd.Printf("Error: %v\n", err)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".gomokuctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GOMOKU")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gomokuctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "gomokuplane server URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Admin token")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
