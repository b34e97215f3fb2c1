package cli

import (
	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/factory"
)

func newQueueCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Join the play queue and handle requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the play queue",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			entries, err := app.Queue.Queue(cmd.Context())
			if err != nil {
				return err
			}
			rt.out.Print(entries)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join",
		Short: "Ask an admin for a slot in the queue",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			var ign string
			if user := app.Auth.User(); user != nil {
				ign = user.IGN
			}
			req, err := app.Queue.RequestQueue(cmd.Context(), app.Auth.Actor(), ign)
			if err != nil {
				return err
			}
			rt.out.Print(req)
			return nil
		}),
	})

	var pending bool
	requests := &cobra.Command{
		Use:   "requests",
		Short: "List queue requests (admin)",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Queue.Requests(cmd.Context(), app.Auth.Actor(), pending)
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
	requests.Flags().BoolVar(&pending, "pending", false, "only show pending requests")
	cmd.AddCommand(requests)

	cmd.AddCommand(newHandleRequestCmd(rt, "approve", true), newHandleRequestCmd(rt, "deny", false))

	var unread bool
	inbox := &cobra.Command{
		Use:   "inbox",
		Short: "Show admin notifications (admin)",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			list, err := app.Queue.Notifications(cmd.Context(), app.Auth.Actor(), unread)
			if err != nil {
				return err
			}
			rt.out.Print(list)
			return nil
		}),
	}
	inbox.Flags().BoolVar(&unread, "unread", false, "only show unread notifications")
	cmd.AddCommand(inbox)

	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			if err := app.Queue.MarkNotificationRead(cmd.Context(), app.Auth.Actor(), args[0]); err != nil {
				return err
			}
			rt.out.PrintMessage("Marked read")
			return nil
		}),
	})

	return cmd
}

func newHandleRequestCmd(rt *runtime, use string, approve bool) *cobra.Command {
	short := "Deny a queue request (admin)"
	if approve {
		short = "Approve a queue request and add the player to the queue (admin)"
	}
	return &cobra.Command{
		Use:   use + " <request-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			req, err := app.Queue.HandleRequest(cmd.Context(), app.Auth.Actor(), args[0], approve)
			if err != nil {
				return err
			}
			rt.out.Print(req)
			return nil
		}),
	}
}
