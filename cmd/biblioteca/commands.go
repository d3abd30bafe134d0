package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/pkg/database"
	"github.com/noah-isme/biblioteca-api/pkg/export"
)

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				applied, err := database.Migrate(cmd.Context(), a.db, a.logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
				return nil
			})
		},
	}
}

func (c *cli) sanctionsCommand() *cobra.Command {
	var asOf string
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Sanction students holding overdue loans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var day time.Time
			if asOf != "" {
				parsed, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				day = parsed
			}
			return c.withApp(cmd, func(a *app) error {
				summary, err := a.sanctions.Sweep(cmd.Context(), day)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	sweep.Flags().StringVar(&asOf, "as-of", "", "evaluation date, defaults to today")

	cmd := &cobra.Command{Use: "sanctions", Short: "Sanction maintenance"}
	cmd.AddCommand(sweep)
	return cmd
}

func (c *cli) semestersCommand() *cobra.Command {
	clamp := &cobra.Command{
		Use:   "clamp",
		Short: "Clamp student semesters to the configured cap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				result, err := a.maintenance.ClampSemesters(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd := &cobra.Command{Use: "semesters", Short: "Student semester maintenance"}
	cmd.AddCommand(clamp)
	return cmd
}

func (c *cli) triggersCommand() *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "List database triggers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				triggers, err := a.maintenance.ListTriggers(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tTABLE\tTIMING\tEVENT")
				for _, t := range triggers {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Table, t.Timing, t.Event)
				}
				return w.Flush()
			})
		},
	}
	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Drop a database trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				if err := a.maintenance.RemoveTrigger(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed trigger %s\n", args[0])
				return nil
			})
		},
	}
	cmd := &cobra.Command{Use: "triggers", Short: "Inspect and remove legacy triggers"}
	cmd.AddCommand(list, remove)
	return cmd
}

func (c *cli) reportsCommand() *cobra.Command {
	var (
		start, end, format, out string
		limit                   int
	)

	byCareer := &cobra.Command{
		Use:   "loans-by-career",
		Short: "Loan activity grouped by career",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app) error {
				rows, window, err := a.reports.LoansByCareer(cmd.Context(), dto.LoansByCareerQuery{Start: start, End: end})
				if err != nil {
					return err
				}
				title := fmt.Sprintf("Loans by career %s to %s", window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly))
				return writeReport(cmd, a, f, out, rows, service.LoansByCareerDataset(rows), title)
			})
		},
	}
	byCareer.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	byCareer.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")

	popular := &cobra.Command{
		Use:   "popular-books",
		Short: "Most borrowed books",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app) error {
				rows, err := a.reports.PopularBooks(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeReport(cmd, a, f, out, rows, service.PopularBooksDataset(rows), "Popular books")
			})
		},
	}
	popular.Flags().IntVar(&limit, "limit", dto.DefaultPopularBooksLimit, "number of books")

	cmd := &cobra.Command{Use: "reports", Short: "Run reports"}
	cmd.PersistentFlags().StringVar(&format, "format", "json", "json, csv or pdf")
	cmd.PersistentFlags().StringVarP(&out, "out", "o", "", "output file, defaults to stdout")
	cmd.AddCommand(byCareer, popular)
	return cmd
}

func (c *cli) tokenCommand() *cobra.Command {
	issue := &cobra.Command{
		Use:   "issue <operator-id>",
		Short: "Issue an access token for an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				token, expires, err := a.tokens.IssueForOperator(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"token":      token,
					"expires_at": expires,
				})
			})
		},
	}
	cmd := &cobra.Command{Use: "token", Short: "Operator tokens"}
	cmd.AddCommand(issue)
	return cmd
}

func writeReport(cmd *cobra.Command, a *app, format export.Format, out string, rows interface{}, data export.Dataset, title string) error {
	w := cmd.OutOrStdout()
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer file.Close()
		w = file
	}

	if format == export.FormatJSON {
		return writeJSON(w, rows)
	}
	body, err := a.reports.Render(format, data, title)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
