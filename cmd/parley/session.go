package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voyago/parley/internal/config"
	redisAdapter "github.com/voyago/parley/pkg/adapters/redis"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the session directory of a running deployment",
	Long: `List, inspect, and remove session records from the Redis session directory.
Requires the relay to be configured with a Redis directory; the default
in-memory directory is not reachable from outside the server process.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all live sessions, oldest first",
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		defer store.Close()

		sessions, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No live sessions found.")
			return
		}

		fmt.Println("Live Sessions:")
		for _, s := range sessions {
			fmt.Println("- " + s)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect a session record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		store := getStore(cmd)
		defer store.Close()

		session, err := store.Load(cmd.Context(), sessionID)
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", sessionID, err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling session: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more session records",
	Long: `Removes directory records only. The live session inside the relay process
is untouched; use this to clean up records orphaned by a crashed instance.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		defer store.Close()
		hasError := false

		for _, sessionID := range args {
			if err := store.Delete(cmd.Context(), sessionID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", sessionID, err)
				hasError = true
			} else {
				fmt.Printf("Removed session record '%s'\n", sessionID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionCmd.PersistentFlags().String("redis", "", "Redis address of the session directory")
}

func getStore(cmd *cobra.Command) *redisAdapter.Store {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if cfg.Redis.Addr == "" {
		fmt.Println("No redis directory configured (set --redis, PARLEY_REDIS_ADDR, or redis.addr in the config file).")
		os.Exit(1)
	}
	return redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}
