package leclercdrive

import (
	"errors"
	"strings"
	"time"

	"gopkg.in/xmlpath.v2"

	"github.com/SomeAverageDev/konnectors/internal/currencyutils"
	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/htmlutils"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// Column layout of the order history table.
const (
	historyRowsXPath = "//table[@id='historique']//tr"
	dateColumn       = 1
	amountColumn     = 4
	documentColumn   = 5
	// The third option of the document menu is the order form.
	documentOption = 2
)

var pdfURLRewriter = strings.NewReplacer("rapport/", "", "bon-de-commande", "bondecommande")

// Extract reads the order history. The first row is the header; every other
// row gives the order date ("05-03-2024 à 18h30"), the amount in a strong
// element and a select whose options carry document URLs.
func (a *Adapter) Extract(doc *vendor.Document) ([]models.Bill, error) {
	root, err := htmlutils.ParseHTML(doc.Body)
	if err != nil {
		return nil, &runerror.ParseError{Vendor: VendorName, Field: "page", Value: doc.URL, Err: err}
	}
	rows, err := htmlutils.Nodes(root, historyRowsXPath)
	if err != nil {
		return nil, &runerror.ParseError{Vendor: VendorName, Field: "rows", Value: historyRowsXPath, Err: err}
	}

	bills := make([]models.Bill, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cells, err := htmlutils.Nodes(row, "td")
		if err != nil {
			return nil, &runerror.ParseError{Vendor: VendorName, Field: "cells", Value: "td", Err: err}
		}
		if len(cells) <= documentColumn {
			continue
		}

		bill, err := parseRow(cells)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	a.logger.Info("Successfully parsed the page", logging.F(logging.FieldCount, len(bills)))
	return bills, nil
}

func parseRow(cells []*xmlpath.Node) (models.Bill, error) {
	dateText := htmlutils.CleanText(cells[dateColumn].String())
	words := strings.Fields(dateText)
	if len(words) == 0 {
		return models.Bill{}, &runerror.ParseError{Vendor: VendorName, Field: "date", Value: dateText, Err: errors.New("empty cell")}
	}
	date, err := time.Parse(dateutils.DateLayoutDashed, words[0])
	if err != nil {
		return models.Bill{}, &runerror.ParseError{Vendor: VendorName, Field: "date", Value: words[0], Err: err}
	}

	amountText, ok, _ := htmlutils.First(cells[amountColumn], "strong")
	if !ok {
		amountText = htmlutils.CleanText(cells[amountColumn].String())
	}
	amount, err := currencyutils.FindAmount(amountText)
	if err != nil {
		return models.Bill{}, &runerror.ParseError{Vendor: VendorName, Field: "amount", Value: amountText, Err: err}
	}

	return models.Bill{
		Vendor:      VendorName,
		Type:        BillType,
		Date:        dateutils.Day(date),
		Amount:      amount,
		DocumentURL: documentURL(cells[documentColumn]),
	}, nil
}

// documentURL returns the order form link of the row, rewritten to the
// direct download path, or "" when the menu has no such entry.
func documentURL(cell *xmlpath.Node) string {
	params, err := htmlutils.Texts(cell, ".//option/@data-param")
	if err != nil {
		return ""
	}
	raw := strings.TrimSpace(htmlutils.GetOrEmpty(params, documentOption))
	if raw == "" {
		return ""
	}
	return pdfURLRewriter.Replace(raw)
}
