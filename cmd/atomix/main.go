package main

import (
	"fmt"
	"os"

	clientcmd "github.com/baymaxhuang/atomix/internal/cmd/client"
	serverrun "github.com/baymaxhuang/atomix/internal/cmd/server"
	logpkg "github.com/baymaxhuang/atomix/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	logger := logpkg.FromEnv()

	rootCmd := &cobra.Command{
		Use:   "atomix",
		Short: "Atomix resource server and client CLI",
		Long:  "Atomix hosts replicated resources behind a session server. This CLI manages the server and operates on resources.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the session server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			listen, _ := cmd.Flags().GetString("listen")
			return serverrun.Run(cmd.Context(), serverrun.Options{
				ConfigPath: configPath,
				DataDir:    dataDir,
				ListenAddr: listen,
				Logger:     logger,
			})
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to JSON configuration file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (default: platform data dir)")
	serverStartCmd.Flags().String("listen", "", "Listen address (default: 127.0.0.1:5678)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	for _, c := range clientcmd.NewRoot().Commands() {
		rootCmd.AddCommand(c)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
