package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/helix/helix/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "helix",
	Short: "Helix - recruiting outreach assistant",
	Long: `Helix gathers hiring details through conversation and drafts a
multi-step candidate outreach sequence that can then be extended or edited.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = config.NewLogger(cfg.Log)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}
