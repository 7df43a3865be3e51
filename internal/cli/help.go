package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newQuickstartCmd())
}

type commandCategory struct {
	name     string
	commands [][2]string
}

var commandCategories = []commandCategory{
	{
		name: "Paper Trading",
		commands: [][2]string{
			{"paper buy <symbol> <shares> <price>", "Buy shares with simulated cash"},
			{"paper sell <symbol> <shares> <price>", "Sell shares you hold"},
			{"paper positions", "View holdings and cost basis"},
			{"paper value --price SYM=P", "Portfolio value at given prices"},
			{"paper history", "Recent trades, newest first"},
			{"paper export", "Export every trade as CSV or JSON"},
			{"paper status", "Cash, resets and trade counts"},
			{"paper reset", "Start over with fresh cash"},
			{"paper request-reset", "Ask for more resets"},
			{"paper requests", "List pending reset requests"},
		},
	},
	{
		name: "Flashcards",
		commands: [][2]string{
			{"review grade <term> --quality Q", "Record a review graded 0-5"},
			{"review grade <term> --correct", "Record a correct answer"},
			{"review show <term>", "Progress of one term"},
			{"review due", "Terms due for review"},
			{"review stats", "Study progress summary"},
		},
	},
	{
		name: "Setup",
		commands: [][2]string{
			{"config show", "Show current configuration"},
			{"config path", "Show configuration file path"},
			{"config validate", "Validate configuration file"},
			{"version", "Print version information"},
		},
	},
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List all commands by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				listing := make(map[string][]string, len(commandCategories))
				for _, cat := range commandCategories {
					for _, c := range cat.commands {
						listing[cat.name] = append(listing[cat.name], c[0])
					}
				}
				return output.JSON(listing)
			}

			output.Bold("Stock Academy Commands")
			output.Println()
			for _, cat := range commandCategories {
				output.Bold(cat.name)
				for _, c := range cat.commands {
					output.Printf("  %-38s %s\n", c[0], c[1])
				}
				output.Println()
			}
			output.Dim("Use 'academy help <command>' for detailed help on any command")
			return nil
		},
	}
}

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Stock Academy - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{"Check Your Account", "You start with $100,000 of practice money.", "academy paper status"},
				{"Buy Your First Shares", "Pick a company and a price per share.", "academy paper buy AAPL 10 150"},
				{"See What You Own", "Positions show your shares and average cost.", "academy paper positions"},
				{"Value Your Portfolio", "Supply today's prices to see gains and losses.", "academy paper value --price AAPL=162.50"},
				{"Learn a Term", "Grade how well you remembered it.", "academy review grade dividend --correct"},
				{"Come Back Tomorrow", "Review the terms that are due.", "academy review due"},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Green("→"), i+1, s.title)
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Good To Know")
			output.Println()
			notes := []string{
				"No real money is ever involved",
				"Resets are limited, so trade thoughtfully",
				"Your trade history is kept even after a reset",
			}
			output.Printf("  %s\n", strings.Join(notes, "\n  "))
			return nil
		},
	}
}
