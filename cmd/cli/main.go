// cmd/cli/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"novabot/internal/command"
	"novabot/internal/commands"
	"novabot/internal/config"
	"novabot/internal/discord"
	"novabot/internal/docs"
	"novabot/internal/logging"
	"novabot/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	commandsPath string
	logLevel     string
	force        bool
	readmeTmpl   string
	readmeOut    string
)

var rootCmd = &cobra.Command{
	Use:   "novabot-cli",
	Short: "Maintenance tasks for NovaBot command manifests",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Options{Level: logLevel, Pretty: true})
	},
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every command manifest against the compiled handlers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, failed, err := loadRegistry(commandsPath, commands.Deps{})
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d manifest(s) failed to load", failed)
		}
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push the command set to Discord once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("path") {
			commandsPath = cfg.CommandsPath
		}

		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return err
		}

		reg, failed, err := loadRegistry(commandsPath, commands.Deps{Session: session})
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("refusing to publish: %d manifest(s) failed to load", failed)
		}

		var hashes discord.HashStore
		if !force {
			store, err := storage.New(cfg.StoragePath)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()
			hashes = store
		}
		reg.SetPublisher(discord.NewPublisher(session, discord.SessionAppID(session), cfg.GuildID, hashes))

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		return reg.Publish(ctx)
	},
}

var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Regenerate README.md from the command manifests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, failed, err := loadRegistry(commandsPath, commands.Deps{})
		if err != nil {
			return err
		}
		if failed > 0 {
			log.Warn().Int("failed", failed).Msg("some manifests were skipped")
		}
		return docs.UpdateReadme(readmeTmpl, readmeOut, reg.ByCategory())
	},
}

// loadRegistry loads every manifest under root and reports how many failed.
func loadRegistry(root string, deps commands.Deps) (*command.Registry, int, error) {
	cat := command.NewCatalog()
	reg := command.NewRegistry(cat)
	deps.Registry = reg
	// Nothing here runs a handler; only registration is needed.
	if err := commands.Register(cat, deps).Close(); err != nil {
		log.Warn().Err(err).Msg("failed to release command modules")
	}

	sources, err := command.Sources(root)
	if err != nil {
		return nil, 0, err
	}
	if len(sources) == 0 {
		return nil, 0, errors.New("no manifests found under " + root)
	}

	failed := 0
	for _, src := range sources {
		d, err := reg.Load(src.Category, src.Path)
		if err != nil {
			log.Error().Err(err).Str("category", src.Category).Msg("invalid manifest")
			failed++
			continue
		}
		log.Info().Str("command", d.Name).Str("category", d.Category).Str("handler", d.HandlerID).Msg("ok")
	}
	return reg, failed, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commandsPath, "path", "commands", "commands directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	publishCmd.Flags().BoolVar(&force, "force", false, "publish even when the stored hash is unchanged")

	readmeCmd.Flags().StringVar(&readmeTmpl, "template", "README.md.tmpl", "README template")
	readmeCmd.Flags().StringVar(&readmeOut, "out", "README.md", "output file")

	rootCmd.AddCommand(validateCmd, publishCmd, readmeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
