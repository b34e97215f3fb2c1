package cli

import (
	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/model"
)

func newReportCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send feedback to the admins",
	}

	var typ, title, description string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Report a bug or suggest a feature",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			var by string
			if user := app.Auth.User(); user != nil {
				by = user.IGN
			}
			report, err := app.Queue.SubmitReport(cmd.Context(), app.Auth.Actor(), by, model.ReportType(typ), title, description)
			if err != nil {
				return err
			}
			rt.out.Print(report)
			return nil
		}),
	}
	submit.Flags().StringVarP(&typ, "type", "t", string(model.ReportBug), "bug, feature, recommendation or other")
	submit.Flags().StringVar(&title, "title", "", "short summary")
	submit.Flags().StringVarP(&description, "description", "d", "", "details")

	list := &cobra.Command{
		Use:   "list",
		Short: "List submitted reports (admin)",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			reports, err := app.Queue.Reports(cmd.Context(), app.Auth.Actor())
			if err != nil {
				return err
			}
			rt.out.Print(reports)
			return nil
		}),
	}

	cmd.AddCommand(submit, list)
	return cmd
}
