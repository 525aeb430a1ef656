package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and drive upload sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upload sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListSessions")
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.ListSessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  %-22s  %s\n",
				s.ID,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				statusColor(s.Status).Sprint(s.Status),
				s.State.RootArchiveName,
			)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION",
	Short: "Show a session's status, dispositions and pending decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "GetSession")
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.GetSession(ctx, args[0])
		if err != nil {
			return describeError("show", err)
		}
		printSession(sess)
		return nil
	},
}

var sessionResolveCmd = &cobra.Command{
	Use:   "resolve SESSION CANDIDATE=DECISION...",
	Short: "Resolve pending dedup decisions (skip, new_project, new_version)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ResolveDedup")
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.ResolveDedup(ctx, args[0], args[1:])
		if err != nil {
			return describeError("resolve", err)
		}
		printSession(sess)
		return nil
	},
}

var sessionAdvanceCmd = &cobra.Command{
	Use:   "advance SESSION",
	Short: "Move a session to its next step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		ctx := cmd.Context()

		a, err := newApp(ctx, "Advance")
		if err != nil {
			return err
		}
		defer a.Close()

		if from == "" {
			current, err := a.GetSession(ctx, args[0])
			if err != nil {
				return describeError("advance", err)
			}
			from = string(current.Status)
		}

		sess, err := a.Advance(ctx, args[0], from)
		if err != nil {
			return describeError("advance", err)
		}
		printSession(sess)
		return nil
	},
}

var sessionFailCmd = &cobra.Command{
	Use:   "fail SESSION CAUSE",
	Short: "Mark a session as failed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "FailSession")
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.FailSession(ctx, args[0], args[1])
		if err != nil {
			return describeError("fail", err)
		}
		printSession(sess)
		return nil
	},
}

var sessionSelectCmd = &cobra.Command{
	Use:   "select SESSION KEY VALUE",
	Short: "Store a wizard selection (VALUE is JSON or plain text)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		expect, _ := cmd.Flags().GetString("expect")
		ctx := cmd.Context()

		a, err := newApp(ctx, "PutSelection")
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.PutSelection(ctx, args[0], expect, args[1], args[2])
		if err != nil {
			return describeError("select", err)
		}
		fmt.Printf("Stored %s on session %s (%s)\n", args[1], sess.ID, sess.Status)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResolveCmd)
	sessionCmd.AddCommand(sessionAdvanceCmd)
	sessionAdvanceCmd.Flags().String("from", "", "Status the session is expected to be at (default: current)")
	sessionCmd.AddCommand(sessionFailCmd)
	sessionCmd.AddCommand(sessionSelectCmd)
	sessionSelectCmd.Flags().String("expect", "", "Status the session is expected to be at")
	sessionSelectCmd.MarkFlagRequired("expect")
}
