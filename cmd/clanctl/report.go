package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"darkframe.ru/clanwar/internal/app"
	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/votes"
)

func votesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "votes <clan>",
		Short: "Последние голосования клана",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				list, err := s.Votes.Recent(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				printVotes(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", votes.RecentLimit, "сколько голосований показать")
	return cmd
}

func printVotes(w io.Writer, list []*votes.Vote) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tТИП\tСТАТУС\tЗА\tПРОТИВ\tНУЖНО\tСОЗДАНО\tЦЕЛЬ")
	for _, v := range list {
		target := v.Terms.TargetClanID
		if v.Terms.TargetPlayerID != "" {
			target = v.Terms.TargetPlayerID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			v.VoteID, v.Type, v.Status, len(v.VotesFor), len(v.VotesAgainst), v.RequiredVotes,
			common.FormatDateTime(v.CreatedAt), target)
	}
	tw.Flush()
}

func auditCommand() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "audit <clan>",
		Short: "Удары клана (как агрессора и как цели) за период",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(s *app.Services) error {
				events, err := s.Audit.ForClanSince(cmd.Context(), args[0], time.Now().Add(-since))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ВРЕМЯ\tАГРЕССОР\tЦЕЛЬ\tБОЕГОЛОВКА\tТИР\tШТРАФ\tКУЛДАУН\tШАГОВ")
				for _, e := range events {
					tier := e.Tier
					if e.FallbackTier {
						tier += "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%d/5\n",
						common.FormatDateTime(e.CreatedAt), e.LauncherClanID, e.TargetClanID,
						e.WarheadType, tier, e.ReputationLoss,
						fmt.Sprintf("%d %s", e.CooldownDays, common.PluralizeDays(e.CooldownDays)), e.AppliedSteps)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 72*time.Hour, "глубина просмотра")
	return cmd
}

func tiersCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Действующая таблица боеголовок",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := consequences.LoadTable(file)
			if err != nil {
				return err
			}
			printTiers(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML с переопределениями (по умолчанию CONSEQUENCE_TIERS_FILE)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if file == "" {
			file = envOr("CONSEQUENCE_TIERS_FILE", "")
		}
	}
	return cmd
}

func printTiers(w io.Writer, table consequences.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "БОЕГОЛОВКА\tТЯЖЕСТЬ\tШТРАФ\tКУЛДАУН\tОТВЕТ\tВСЕМ\tГОЛОСОВАНИЕ")
	for _, name := range table.Names() {
		t := table[name]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%dd\t%s\t%s\t%s\n",
			name, t.Severity, t.ReputationLoss, t.CooldownDays,
			yesNo(t.AllowsRetaliation), yesNo(t.AffectsAllMembers), yesNo(t.RequiresVote))
	}
	tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
