package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/kaymio/productcast/storage/db"
	"github.com/kaymio/productcast/views/helpers"
	"github.com/spf13/cobra"
)

const historyErrorWidth = 60

var statusColumns = []string{
	state.PlatformPinterest,
	state.PlatformInstagramFeed,
	state.PlatformInstagramStory,
	state.PlatformYouTube,
	state.PlatformTikTok,
	state.PlatformWebsite,
}

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and reset saved workflow state",
	}

	stateCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved products and their platform statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			st := store.Load(cmd.Context())
			out := cmd.OutOrStdout()
			if len(st.Products) == 0 {
				fmt.Fprintln(out, "No saved products")
				return nil
			}
			fmt.Fprintln(out, renderStateTable(st))
			return nil
		},
	})

	stateCmd.AddCommand(&cobra.Command{
		Use:   "reset <product-id> <platform>",
		Short: "Clear one platform's state (pinterest removes the whole product)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			id := state.NormalizeProductID(args[0])
			if id == "" {
				return fmt.Errorf("product id is required")
			}
			if _, ok := store.Entry(cmd.Context(), id); !ok {
				return fmt.Errorf("no saved state for %q", id)
			}
			if err := store.ResetPlatform(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s for %s\n", strings.ToLower(strings.TrimSpace(args[1])), id)
			return nil
		},
	})

	return stateCmd
}

func renderStateTable(st state.AppState) string {
	ids := make([]string, 0, len(st.Products))
	for id := range st.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	headers := append([]string{"Product", "Title"}, statusColumns...)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		entry := st.Products[id]
		label := id
		if id == st.LastProductID {
			label += " *"
		}
		row := []string{label, entry.FormValues["title"]}
		for _, platform := range statusColumns {
			status := entry.PlatformStatus(platform)
			if status == "" {
				status = "-"
			}
			row = append(row, status)
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, nil)
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [product-id]",
		Short: "Show recorded publish attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(history *storage.History) error {
				var (
					events []db.PublishEvent
					err    error
				)
				if len(args) == 1 {
					events, err = history.Recent(cmd.Context(), state.NormalizeProductID(args[0]), limit)
				} else {
					events, err = history.Latest(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No publish history")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(events))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultHistoryLimit, "Maximum events to show")

	return cmd
}

func renderHistoryTable(events []db.PublishEvent) string {
	headers := []string{"#", "When", "Product", "Platform", "Status", "Remote", "Error"}
	rows := make([][]string, 0, len(events))
	for i, ev := range events {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			helpers.FormatDateTime(ev.CreatedAt),
			ev.ProductID,
			ev.Platform,
			ev.Status,
			helpers.FormatNullString(ev.RemoteUrl, helpers.FormatNullString(ev.RemoteID, "")),
			helpers.Truncate(ev.Error.String, historyErrorWidth),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight})
}
