package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// WriteReportCSV serialises a report as CSV: a metric/value block followed by its detail table.
func WriteReportCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	var records [][]string
	switch report.Kind {
	case KindSales:
		records = salesRecords(report.Sales)
	case KindInventory:
		records = inventoryRecords(report.Inventory)
	case KindCustomers:
		records = customerRecords(report.Customers)
	case KindSuppliers:
		records = supplierRecords(report.Suppliers)
	default:
		return fmt.Errorf("dashboard: unknown report kind %q", report.Kind)
	}
	if records == nil {
		return fmt.Errorf("dashboard: %s report body missing", report.Kind)
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

func salesRecords(r *SalesReport) [][]string {
	if r == nil {
		return nil
	}
	records := [][]string{
		{"Metric", "Value"},
		{"Days", strconv.Itoa(r.Days)},
		{"From", r.From.Format("2006-01-02")},
		{"To", r.To.AddDate(0, 0, -1).Format("2006-01-02")},
		{"Orders", strconv.Itoa(r.OrderCount)},
		{"Total", money(r.Total)},
		{"Average", money(r.Average)},
		{},
		{"Product ID", "Product", "Quantity"},
	}
	for _, p := range r.TopProducts {
		records = append(records, []string{itoa(p.ProductID), p.Name, p.Quantity.String()})
	}
	return records
}

func inventoryRecords(r *InventoryReport) [][]string {
	if r == nil {
		return nil
	}
	records := [][]string{
		{"Metric", "Value"},
		{"Products", strconv.Itoa(r.ProductCount)},
		{"Valuation", money(r.Valuation)},
		{"Low stock threshold", r.Threshold.String()},
		{},
		{"Status", "Product ID", "Code", "Product", "On hand", "Price"},
	}
	for _, item := range r.OutOfStock {
		records = append(records, stockRecord(LevelOut, item))
	}
	for _, item := range r.LowStock {
		records = append(records, stockRecord(LevelLow, item))
	}
	return records
}

func stockRecord(level string, item StockItem) []string {
	return []string{level, itoa(item.ProductID), item.Code, item.Name, item.OnHand.String(), money(item.Price)}
}

func customerRecords(r *CustomerReport) [][]string {
	if r == nil {
		return nil
	}
	records := [][]string{
		{"Metric", "Value"},
		{"Customers", strconv.Itoa(r.Total)},
		{"Active", strconv.Itoa(r.Active)},
		{"Inactive", strconv.Itoa(r.Inactive)},
		{},
		{"Customer ID", "Customer", "Orders", "Spent"},
	}
	for _, c := range r.TopCustomers {
		records = append(records, []string{itoa(c.CustomerID), c.Name, strconv.Itoa(c.Orders), money(c.Spent)})
	}
	return records
}

func supplierRecords(r *SupplierReport) [][]string {
	if r == nil {
		return nil
	}
	return [][]string{
		{"Metric", "Value"},
		{"Suppliers", strconv.Itoa(r.Total)},
		{"Active", strconv.Itoa(r.Active)},
		{"Inactive", strconv.Itoa(r.Inactive)},
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
