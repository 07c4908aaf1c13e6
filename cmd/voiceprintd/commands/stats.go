package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/haivivi/voiceprint/pkg/config"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show feature store statistics",
	Long: `Show feature store statistics without starting the service.

Opens the configured store directly and reports the number of enrolled
identities. The service must not be running against the same Badger
directory at the same time.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	count, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s %d\n", labelStyle.Render("enrolled voiceprints:"), count)
	fmt.Printf("%s %s\n", dimStyle.Render("backend:"), cfg.Store.Backend)
	fmt.Printf("%s %d\n", dimStyle.Render("dimension:"), cfg.Model.Dimension)
	return nil
}
