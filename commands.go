package main

import (
	"fmt"

	"litebridge/cli"
	"litebridge/config"
	"litebridge/service"
	"litebridge/version"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var demoRows int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run every data manager operation against the configured database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logFile, err := setupLogging("", config.Settings.LogLevel, config.Settings.LogPretty)
		if err != nil {
			return err
		}
		if logFile != nil {
			defer logFile.Close()
		}

		m, err := bootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer shutdownDatabases()

		report, err := service.RunDemo(cmd.Context(), m, demoRows)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var (
	checkRetrieve bool
	checkBackup   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an integrity check and optionally repair the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := setupLogging("", config.Settings.LogLevel, config.Settings.LogPretty); err != nil {
			return err
		}

		// A corrupted file may not accept DDL, so no table is created here
		m, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer shutdownDatabases()
		db := m.Database()
		out := cmd.OutOrStdout()

		corrupted, err := db.CheckIfCorrupted(cmd.Context())
		if err != nil {
			return err
		}
		if !corrupted {
			fmt.Fprintf(out, "✓ %s passed the integrity check\n", db.Path())
			if checkBackup {
				if err := db.Backup(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Backup refreshed")
			}
			return nil
		}

		fmt.Fprintf(out, "✗ %s is corrupted\n", db.Path())
		if !checkRetrieve {
			return fmt.Errorf("%s is corrupted, run again with --retrieve to rebuild it", db.Path())
		}

		score, err := db.Retrieve(cmd.Context(), func(percentage, _ float64) {
			fmt.Fprintf(out, "\rretrieving... %3.0f%%", percentage*100)
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Retrieve finished, score %.2f\n", score)
		return nil
	},
}

var cliProfile string

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Interactive client for a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cli.DefaultProfilesPath()
		if err != nil {
			return err
		}
		profiles, err := cli.LoadProfiles(path, config.Settings.CLIServer)
		if err != nil {
			return err
		}

		serverURL := config.Settings.CLIServer
		if !cmd.Flags().Changed("server") {
			if profile, err := profiles.Server(cliProfile); err == nil {
				serverURL = profile.URL
			} else if cliProfile != "" {
				return err
			}
		}

		fmt.Printf("litebridge CLI - Connecting to %s\n", serverURL)
		shell, err := cli.NewShell(cmd.Context(), serverURL, profiles)
		if err != nil {
			fmt.Println("\nTips:")
			fmt.Println("  1. Make sure the litebridge server is running:")
			fmt.Println("     ./litebridge serve")
			fmt.Println("  2. Or specify a different server:")
			fmt.Println("     ./litebridge cli --server http://your-server:7799")
			return err
		}
		shell.Start(cmd.Context())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetBuildInfo())
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoRows, "rows", 10, "number of samples the demo inserts")
	checkCmd.Flags().BoolVar(&checkRetrieve, "retrieve", false, "rebuild a corrupted database from backup and deposits")
	checkCmd.Flags().BoolVar(&checkBackup, "backup", false, "refresh the backup when the database is healthy")
	cliCmd.Flags().StringVar(&cliProfile, "profile", "", "server profile from ~/.litebridge/servers.yaml")
}
