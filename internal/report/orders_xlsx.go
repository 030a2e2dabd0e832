// Package report renders back-office exports.
package report

import (
	"fmt"
	"io"
	"strings"

	"zen-storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout      = "2006-01-02 15:04:05"
	moneyFormat     = "0.00"
)

var orderHeaders = []string{
	"Order Number", "Placed At", "Customer", "Name", "Email", "Phone",
	"Status", "Shipping Status", "Payment Method", "Payment Status",
	"Subtotal", "Shipping", "Discount", "Total", "Coupon",
	"Tracking Number", "City", "Country", "Notes",
}

var itemHeaders = []string{
	"Order Number", "Product ID", "Product", "Size", "Color", "Quantity", "Unit Price", "Line Total",
}

// WriteOrders writes an Orders sheet (one row per order) and an Items sheet
// (one row per line item) to w.
func WriteOrders(w io.Writer, orders []*domain.Order) error {
	file := xlsx.NewFile()

	ordersSheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create orders sheet: %w", err)
	}
	itemsSheet, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("failed to create items sheet: %w", err)
	}

	addHeader(ordersSheet, orderHeaders)
	addHeader(itemsSheet, itemHeaders)

	for _, o := range orders {
		row := ordersSheet.AddRow()
		row.AddCell().SetString(o.OrderNumber)
		row.AddCell().SetString(o.CreatedAt.UTC().Format(timeLayout))
		row.AddCell().SetString(o.Customer())
		row.AddCell().SetString(o.Contact.Name)
		row.AddCell().SetString(o.Contact.Email)
		row.AddCell().SetString(o.Contact.Phone)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(o.ShippingStatus())
		row.AddCell().SetString(string(o.PaymentMethod))
		row.AddCell().SetString(string(o.PaymentStatus))
		addMoney(row, o.Subtotal)
		addMoney(row, o.ShippingCost)
		addMoney(row, o.Discount)
		addMoney(row, o.Total)
		row.AddCell().SetString(o.CouponCode)
		row.AddCell().SetString(o.TrackingNumber)
		row.AddCell().SetString(o.ShippingAddress.City)
		row.AddCell().SetString(o.ShippingAddress.Country)
		row.AddCell().SetString(strings.TrimSpace(o.Notes))

		for _, it := range o.Items {
			itemRow := itemsSheet.AddRow()
			itemRow.AddCell().SetString(o.OrderNumber)
			itemRow.AddCell().SetString(it.ProductID.String())
			itemRow.AddCell().SetString(it.Name)
			itemRow.AddCell().SetString(it.Size)
			itemRow.AddCell().SetString(it.Color)
			itemRow.AddCell().SetInt(it.Quantity)
			addMoney(itemRow, it.UnitPrice)
			addMoney(itemRow, it.LineTotal())
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		cell := row.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		style.Font.Bold = true
		style.ApplyFont = true
		cell.SetStyle(style)
	}
}

func addMoney(row *xlsx.Row, d decimal.Decimal) {
	f, _ := d.Round(2).Float64()
	row.AddCell().SetFloatWithFormat(f, moneyFormat)
}
