// Package export renders dashboards as CSV, printable HTML and plain-text tables.
package export

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"watchshop/backend/internal/domain"
)

// FormatVND renders an amount rounded to whole dong with comma thousands
// separators, e.g. "1,250,000 VND".
func FormatVND(amount decimal.Decimal) string {
	whole := amount.Round(0).String()
	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " VND"
}

// FileName is the download name used for a dashboard export.
func FileName(period domain.PeriodSelector, ext string) string {
	if period.WholeYear() {
		return fmt.Sprintf("dashboard-%04d.%s", period.Year, ext)
	}
	return fmt.Sprintf("dashboard-%04d-%02d.%s", period.Year, period.Month, ext)
}

// WriteCSV writes one section,key,value row per figure.
func WriteCSV(w io.Writer, d domain.Dashboard) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "period", d.Period.String()},
		{"summary", "granularity", d.Granularity},
		{"revenue", "sales_revenue", d.Revenue.SalesRevenue.String()},
		{"revenue", "sales_count", strconv.Itoa(d.Revenue.SalesCount)},
		{"revenue", "repair_revenue", d.Revenue.RepairRevenue.String()},
		{"revenue", "repair_count", strconv.Itoa(d.Revenue.RepairCount)},
		{"revenue", "completed_repair_count", strconv.Itoa(d.Revenue.CompletedRepairCount)},
		{"customers", "total_customers", strconv.Itoa(d.Customers.TotalCustomers)},
		{"customers", "repeat_customers", strconv.Itoa(d.Customers.RepeatCustomers)},
		{"customers", "new_customers", strconv.Itoa(d.Customers.NewCustomers)},
	}
	for _, p := range d.RevenueBreakdown {
		rows = append(rows,
			[]string{"revenue_breakdown", p.Bucket + "_sales_revenue", p.SalesRevenue.String()},
			[]string{"revenue_breakdown", p.Bucket + "_repair_revenue", p.RepairRevenue.String()},
		)
	}
	for _, p := range d.CustomerTrends {
		rows = append(rows,
			[]string{"customer_trends", p.Bucket + "_new_customers", strconv.Itoa(p.NewCustomers)},
			[]string{"customer_trends", p.Bucket + "_repeat_customers", strconv.Itoa(p.RepeatCustomers)},
		)
	}
	for _, p := range d.TopProducts {
		rows = append(rows, []string{"top_products", p.ProductName, strconv.Itoa(p.QuantitySold)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteTable writes a plain-text report for terminals.
func WriteTable(w io.Writer, d domain.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Period %s\t\n", d.Period)
	fmt.Fprintf(tw, "Sales\t%s\t%d invoices\t\n", FormatVND(d.Revenue.SalesRevenue), d.Revenue.SalesCount)
	fmt.Fprintf(tw, "Repairs\t%s\t%d orders, %d completed\t\n", FormatVND(d.Revenue.RepairRevenue), d.Revenue.RepairCount, d.Revenue.CompletedRepairCount)
	fmt.Fprintf(tw, "Customers\t%d total\t%d repeat, %d new\t\n", d.Customers.TotalCustomers, d.Customers.RepeatCustomers, d.Customers.NewCustomers)
	fmt.Fprintln(tw, "\t")

	fmt.Fprintf(tw, "%s\tSales\tRepairs\tNew\tRepeat\t\n", bucketHeading(d.Granularity))
	for i, p := range d.RevenueBreakdown {
		newCount, repeatCount := 0, 0
		if i < len(d.CustomerTrends) {
			newCount, repeatCount = d.CustomerTrends[i].NewCustomers, d.CustomerTrends[i].RepeatCustomers
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t\n", p.Bucket, FormatVND(p.SalesRevenue), FormatVND(p.RepairRevenue), newCount, repeatCount)
	}
	fmt.Fprintln(tw, "\t")

	fmt.Fprintln(tw, "Top products\tSold\t")
	for _, p := range d.TopProducts {
		fmt.Fprintf(tw, "%s\t%d\t\n", p.ProductName, p.QuantitySold)
	}
	return tw.Flush()
}

func bucketHeading(granularity string) string {
	switch granularity {
	case "month":
		return "Month"
	case "day":
		return "Day"
	}
	return "Bucket"
}

type htmlRow struct {
	Bucket  string
	Sales   string
	Repairs string
	New     int
	Repeat  int
}

type htmlView struct {
	Period        string
	Revenue       domain.RevenueSummary
	SalesRevenue  string
	RepairRevenue string
	Customers     domain.CustomerSummary
	Rows          []htmlRow
	TopProducts   []domain.ProductRanking
	GeneratedAt   string
}

var dashboardHTMLTmpl = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales &amp; Repair Report {{.Period}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Sales &amp; Repair Report {{.Period}}</h2>
  <p>Sales: {{.SalesRevenue}} ({{.Revenue.SalesCount}} invoices)</p>
  <p>Repairs: {{.RepairRevenue}} ({{.Revenue.RepairCount}} orders, {{.Revenue.CompletedRepairCount}} completed)</p>
  <p>Customers: {{.Customers.TotalCustomers}} total | {{.Customers.RepeatCustomers}} repeat | {{.Customers.NewCustomers}} new</p>

  <h3>Breakdown</h3>
  <table>
    <thead><tr><th>Bucket</th><th>Sales</th><th>Repairs</th><th>New customers</th><th>Repeat customers</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td>{{.Bucket}}</td><td class="num">{{.Sales}}</td><td class="num">{{.Repairs}}</td><td class="num">{{.New}}</td><td class="num">{{.Repeat}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Quantity sold</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.ProductName}}</td><td class="num">{{.QuantitySold}}</td></tr>{{end}}</tbody>
  </table>
  <p><small>Generated {{.GeneratedAt}}</small></p>
</body>
</html>
`))

// WriteHTML renders a printable page. Product names are escaped by html/template.
func WriteHTML(w io.Writer, d domain.Dashboard) error {
	view := htmlView{
		Period:        d.Period.String(),
		Revenue:       d.Revenue,
		SalesRevenue:  FormatVND(d.Revenue.SalesRevenue),
		RepairRevenue: FormatVND(d.Revenue.RepairRevenue),
		Customers:     d.Customers,
		TopProducts:   d.TopProducts,
		GeneratedAt:   d.GeneratedAt.Format("2006-01-02 15:04 MST"),
	}
	for i, p := range d.RevenueBreakdown {
		row := htmlRow{Bucket: p.Bucket, Sales: FormatVND(p.SalesRevenue), Repairs: FormatVND(p.RepairRevenue)}
		if i < len(d.CustomerTrends) {
			row.New = d.CustomerTrends[i].NewCustomers
			row.Repeat = d.CustomerTrends[i].RepeatCustomers
		}
		view.Rows = append(view.Rows, row)
	}
	return dashboardHTMLTmpl.Execute(w, view)
}
