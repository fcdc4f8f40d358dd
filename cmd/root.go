package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aquasentinel/aquasentinel/cmd/fuse"
	"github.com/aquasentinel/aquasentinel/cmd/serve"
	"github.com/aquasentinel/aquasentinel/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aquasentinel",
		Short: "AquaSentinel waterborne disease surveillance CLI",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		fuse.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags, viper-bound so config file values remain
// the defaults and command-line arguments take precedence.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.ModelPath, "model", viper.GetString("classifier.modelpath"), "Path to the classifier model artifact, empty for the embedded model")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.LabelPath, "labels", viper.GetString("classifier.labelpath"), "Path to a label override file")
	rootCmd.PersistentFlags().IntVar(&settings.Classifier.Workers, "workers", viper.GetInt("classifier.workers"), "Size of the inference worker pool, 0 for CPU count")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
