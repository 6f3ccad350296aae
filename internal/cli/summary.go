package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/services"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSummaryCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the report summary, payment breakdown and rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRun(cmd, v)
			if err != nil {
				return err
			}
			rep, err := r.generate(cmd.Context())
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep.Result)
			}
			return writeSummary(cmd.OutOrStdout(), rep, v.GetInt("page"))
		},
	}
	cmd.Flags().Int("page", 1, "page of the top items and categories lists")
	cmd.Flags().Bool("json", false, "print the raw aggregation result as JSON")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func writeSummary(out io.Writer, rep *services.Report, page int) error {
	money := func(value decimal.Decimal) string { return report.FormatCurrency(rep.Currency, value) }
	res := rep.Result

	fmt.Fprintf(out, "%s\n", report.DocumentTitle)
	fmt.Fprintf(out, "Period: %s (%s)\n\n", rep.Window.Label(), rep.Timezone)
	fmt.Fprintf(out, "Total Orders: %d\n", res.Summary.TotalCount)
	fmt.Fprintf(out, "Total Sales: %s\n", money(res.Summary.TotalSum))
	fmt.Fprintf(out, "Average Order Value: %s\n", money(report.TruncateCurrency(res.AverageOrderValue())))
	fmt.Fprintf(out, "Delivery Orders: %d\n\n", res.Summary.DeliveryCount)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Payment Method\tOrders\tAmount")
	for _, bucket := range res.PaymentBreakdown {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", bucket.Label, bucket.Count, money(bucket.Sum))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	items := report.Paginate(res.TopItems, report.PageSize, page)
	fmt.Fprintf(out, "\nTop Items (page %d of %d)\n", items.CurrentPage, items.TotalPages)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Item\tCategory\tQty\tRevenue")
	for _, item := range items.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", item.Name, orNA(item.Category), item.Quantity, money(item.Revenue))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Pages: %s\n", pageLine(items.TotalPages, items.CurrentPage))

	categories := report.Paginate(report.SortCategoriesByQuantity(res.CategoryStats), report.PageSize, page)
	fmt.Fprintf(out, "\nCategories (page %d of %d)\n", categories.CurrentPage, categories.TotalPages)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tQty\tRevenue")
	for _, c := range categories.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Name, c.Quantity, money(c.Revenue))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if n := len(res.Warnings); n > 0 {
		fmt.Fprintf(out, "\n%d malformed record(s) skipped\n", n)
	}
	return nil
}

func pageLine(total, current int) string {
	tokens := report.PageNumbers(total, current)
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !t.Ellipsis && t.Number == current {
			parts = append(parts, "["+t.String()+"]")
			continue
		}
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return report.NotAvailable
	}
	return value
}
