package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/casepro/gmailbot/internal/outfmt"
	"github.com/casepro/gmailbot/internal/ui"
)

func newGmailCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "Gmail, read-only, as the impersonated subject",
	}
	cmd.AddCommand(newGmailProfileCmd(flags))
	cmd.AddCommand(newGmailLabelsCmd(flags))
	cmd.AddCommand(newGmailSearchCmd(flags))
	cmd.AddCommand(newGmailGetCmd(flags))
	return cmd
}

func newGmailProfileCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show mailbox address and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openMail(cmd.Context(), flags)
			if err != nil {
				return err
			}
			p, err := c.Profile(cmd.Context())
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, p)
			}
			u := ui.FromContext(cmd.Context())
			u.Out().Printf("email\t%s", p.Email)
			u.Out().Printf("messages\t%d", p.MessagesTotal)
			u.Out().Printf("threads\t%d", p.ThreadsTotal)
			u.Out().Printf("history_id\t%d", p.HistoryID)
			return nil
		},
	}
}

func newGmailLabelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openMail(cmd.Context(), flags)
			if err != nil {
				return err
			}
			labels, err := c.Labels(cmd.Context())
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"labels": labels})
			}
			if len(labels) == 0 {
				ui.FromContext(cmd.Context()).Err().Println("No labels")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE")
			for _, l := range labels {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Name, l.Type)
			}
			return tw.Flush()
		},
	}
}

func newGmailSearchCmd(flags *rootFlags) *cobra.Command {
	var max int64

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages using Gmail query syntax",
		Long:  "Search messages using Gmail query syntax.\nExample: gmailbot gmail search 'from:ada newer_than:7d' --max 20",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if max <= 0 {
				return usage("--max must be positive")
			}
			c, err := openMail(cmd.Context(), flags)
			if err != nil {
				return err
			}
			msgs, err := c.Search(cmd.Context(), args[0], max)
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"messages": msgs})
			}
			if len(msgs) == 0 {
				ui.FromContext(cmd.Context()).Err().Println("No messages")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tFROM\tSUBJECT")
			for _, m := range msgs {
				date := ""
				if !m.Received.IsZero() {
					date = m.Received.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, date, m.From, m.Subject)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&max, "max", 10, "Max messages")
	return cmd
}

func newGmailGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <messageId>",
		Short: "Show message headers and snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openMail(cmd.Context(), flags)
			if err != nil {
				return err
			}
			m, err := c.Message(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, m)
			}
			u := ui.FromContext(cmd.Context())
			u.Out().Printf("id\t%s", m.ID)
			u.Out().Printf("thread\t%s", m.ThreadID)
			u.Out().Printf("from\t%s", m.From)
			u.Out().Printf("to\t%s", m.To)
			u.Out().Printf("subject\t%s", m.Subject)
			u.Out().Printf("date\t%s", m.Date)
			u.Out().Println()
			u.Out().Println(m.Snippet)
			return nil
		},
	}
}
