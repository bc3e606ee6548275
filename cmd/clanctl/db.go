package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkframe.ru/clanwar/internal/app"
	"darkframe.ru/clanwar/internal/db/postgres"
	"darkframe.ru/clanwar/internal/features/votes"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции базы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Миграции применены")
			return nil
		},
	}
}

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Закрыть голосования с вышедшим сроком",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				out, err := s.Votes.ExpireSweep(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Закрыто голосований: %d\n", len(out))
				for _, o := range out {
					fmt.Fprintf(w, "  %s  %s  %s\n", o.Vote.VoteID, o.Vote.ClanID, votes.Describe(o.Vote))
				}
				return nil
			})
		},
	}
}
