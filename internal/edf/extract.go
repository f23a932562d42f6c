package edf

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/currencyutils"
	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/htmlutils"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// XPaths of the billing history table.
const (
	rowsXPath = "//div[@class='factures']//tr"
	cellXPath = "td"
	linkXPath = "td/a/@href"
)

// EDF bills carry a month but no emission day.
const billingDay = 28

var invoiceMonth = regexp.MustCompile(`processus=facture_(\d+)_\d+`)

// Extract reads the bills listed on the billing page. Each row holds the
// reference, the period ("Janvier 2024"), the amount and a link whose
// processus parameter carries the invoice month.
func (a *Adapter) Extract(doc *vendor.Document) ([]models.Bill, error) {
	root, err := htmlutils.ParseHTML(doc.Body)
	if err != nil {
		return nil, &runerror.ParseError{Vendor: VendorName, Field: "page", Value: doc.URL, Err: err}
	}
	rows, err := htmlutils.Nodes(root, rowsXPath)
	if err != nil {
		return nil, &runerror.ParseError{Vendor: VendorName, Field: "rows", Value: rowsXPath, Err: err}
	}

	bills := make([]models.Bill, 0, len(rows))
	for _, row := range rows {
		cells, err := htmlutils.Texts(row, cellXPath)
		if err != nil {
			return nil, &runerror.ParseError{Vendor: VendorName, Field: "cells", Value: cellXPath, Err: err}
		}
		links, err := htmlutils.Texts(row, linkXPath)
		if err != nil {
			return nil, &runerror.ParseError{Vendor: VendorName, Field: "link", Value: linkXPath, Err: err}
		}

		reference := htmlutils.GetOrEmpty(cells, 0)
		period := htmlutils.GetOrEmpty(cells, 1)
		amountText := htmlutils.GetOrEmpty(cells, 2)
		link := htmlutils.GetOrEmpty(links, 0)
		if reference == "" || period == "" || amountText == "" || link == "" {
			continue
		}

		bill, err := a.parseRow(reference, period, amountText, link)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	a.logger.Info("Successfully parsed the page", logging.F(logging.FieldCount, len(bills)))
	return bills, nil
}

func (a *Adapter) parseRow(reference, period, amountText, link string) (models.Bill, error) {
	amount, err := currencyutils.FindAmount(amountText)
	if err != nil {
		return models.Bill{}, &runerror.ParseError{Vendor: VendorName, Field: "amount", Value: amountText, Err: err}
	}

	year, month, err := billingPeriod(period, link)
	if err != nil {
		return models.Bill{}, &runerror.ParseError{Vendor: VendorName, Field: "date", Value: period, Err: err}
	}

	return models.Bill{
		Vendor:      VendorName,
		Type:        BillType,
		Date:        dateutils.MonthDay(year, month, billingDay),
		Amount:      amount,
		DocumentURL: a.endpoints.PDF + url.QueryEscape(reference),
	}, nil
}

// billingPeriod takes the year from the last word of the period and the month
// from the invoice link, falling back to the month name of the period.
func billingPeriod(period, link string) (int, time.Month, error) {
	words := strings.Fields(period)
	year, err := strconv.Atoi(words[len(words)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("no year in period: %w", err)
	}

	if m := invoiceMonth.FindStringSubmatch(link); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 12 {
			return year, time.Month(n), nil
		}
		return 0, 0, fmt.Errorf("invalid invoice month %q", m[1])
	}

	if len(words) >= 2 {
		month, err := dateutils.ParseFrenchMonth(words[len(words)-2])
		if err == nil {
			return year, month, nil
		}
	}
	return 0, 0, fmt.Errorf("no month in period or link")
}
