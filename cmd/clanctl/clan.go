package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"darkframe.ru/clanwar/internal/app"
	"darkframe.ru/clanwar/internal/features/clans"
)

func clanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clan",
		Short: "Управление составом кланов",
	}

	create := &cobra.Command{
		Use:   "create <clan> <leader> [название]",
		Short: "Создать клан с лидером",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 2 {
				name = args[2]
			}
			return withServices(cmd.Context(), func(s *app.Services) error {
				if err := s.Clans.Create(cmd.Context(), args[0], name, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Клан %s создан, лидер %s\n", args[0], args[1])
				return nil
			})
		},
	}

	join := &cobra.Command{
		Use:   "join <clan> <player>",
		Short: "Добавить игрока в клан (переводит из прежнего)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				if err := s.Clans.Join(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Игрок %s в клане %s\n", args[1], args[0])
				return nil
			})
		},
	}

	leave := &cobra.Command{
		Use:   "leave <player>",
		Short: "Вывести игрока из клана",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				if err := s.Clans.Leave(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Игрок %s покинул клан\n", args[0])
				return nil
			})
		},
	}

	role := &cobra.Command{
		Use:   "role <clan> <actor> <player> <LEADER|OFFICER|MEMBER>",
		Short: "Сменить роль участника (actor — лидер клана)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				return s.Clans.SetRole(cmd.Context(), args[0], args[1], args[2], clans.Role(args[3]))
			})
		},
	}

	cmd.AddCommand(create, join, leave, role)
	return cmd
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
