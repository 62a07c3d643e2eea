package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"roost/internal/app/version"
	"roost/internal/config"
	"roost/internal/database"
	"roost/internal/support"
)

// storeOpener returns the manager store for settingsPath plus a close func.
type storeOpener func(settingsPath string) (*database.ManagerStore, func() error, error)

func newRootCmd(open storeOpener) *cobra.Command {
	var (
		settingsPath string
		verbose      bool
	)

	root := &cobra.Command{
		Use:   "roostctl",
		Short: "Administer a roost proxy pool",
		Long: `roostctl works directly against the roost database.

It is meant for bootstrapping manager tokens before the API is reachable
and for recovering access when every admin token has been lost.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	defaultPath := support.GetEnv("ROOST_CONFIG", "")
	if defaultPath == "" {
		defaultPath = config.DefaultSettingsPath
	}

	root.PersistentFlags().StringVar(&settingsPath, "config", defaultPath, "Path to the settings file (.json or .toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newTokenCmd(open, &settingsPath), newVersionCmd())
	return root
}

func openManagerStore(settingsPath string) (*database.ManagerStore, func() error, error) {
	if err := config.ReadSettings(settingsPath); err != nil {
		return nil, nil, err
	}
	cfg := config.GetConfig()

	dialector, err := database.DialectorFor(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	// The CLI never seeds ADMIN_TOKEN; it only does what it is told.
	db, err := database.SetupDB(database.WithDialector(dialector), database.WithAdminToken(""))
	if err != nil {
		return nil, nil, err
	}

	return database.NewManagerStore(db), func() error { return database.CloseDB(db) }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}
