package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizrank-service/internal/config"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// NewLeaderboardCmd prints a leaderboard from the configured store.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var friendsOf string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the global leaderboard, or one user's friends leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			s, err := buildStack(cmd.Context(), cfg, logger.Nop(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			scope := domain.GlobalScope()
			if friendsOf != "" {
				scope = domain.FriendsScope(friendsOf)
			}
			entries, err := s.board.Build(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&friendsOf, "friends-of", "", "restrict to this user and their friends")
	return cmd
}

func printLeaderboard(out io.Writer, entries []domain.LeaderboardEntry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tAGE\tSCORE\tSUCCESS")
	for i, e := range entries {
		age := "N/A"
		if e.Age != domain.AgeUnknown {
			age = strconv.Itoa(e.Age)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%.2f%%\n", i+1, e.DisplayName, age, e.Score, e.Total, e.SuccessRate)
	}
	return tw.Flush()
}
