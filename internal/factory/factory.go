// Package factory builds vendor adapters and their connector definitions.
package factory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/edf"
	"github.com/SomeAverageDev/konnectors/internal/konnector"
	"github.com/SomeAverageDev/konnectors/internal/leclercdrive"
	"github.com/SomeAverageDev/konnectors/internal/linker"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/notification"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// VendorType defines the vendor portals available.
type VendorType string

const (
	EDF          VendorType = edf.VendorName
	LeclercDrive VendorType = leclercdrive.VendorName
)

// Vendors lists the supported vendors.
func Vendors() []VendorType {
	return []VendorType{EDF, LeclercDrive}
}

// ParseVendorType normalizes a configured vendor name.
func ParseVendorType(name string) (VendorType, error) {
	vt := VendorType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Vendors() {
		if vt == known {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown vendor type: %s", name)
}

// GetAdapterWithLogger returns a new adapter for the given vendor talking to
// the production portal.
func GetAdapterWithLogger(vt VendorType, httpOpts vendor.HTTPOptions, logger logging.Logger) (vendor.Adapter, error) {
	switch vt {
	case EDF:
		return edf.New(edf.DefaultEndpoints(""), httpOpts, logger), nil
	case LeclercDrive:
		return leclercdrive.New(leclercdrive.DefaultEndpoints(), httpOpts, logger), nil
	default:
		return nil, fmt.Errorf("unknown vendor type: %s", vt)
	}
}

// shippedAmountDelta is the amount tolerance both vendors were tuned with.
var shippedAmountDelta = decimal.RequireFromString("0.1")

// GetDefinition returns the shipped connector definition of a vendor.
func GetDefinition(vt VendorType) (konnector.Definition, error) {
	switch vt {
	case EDF:
		return konnector.Definition{
			Vendor:   edf.VendorName,
			BillType: edf.BillType,
			Link: linker.Options{
				Identifier:   "EDF",
				MinDateDelta: 4,
				MaxDateDelta: 20,
				AmountDelta:  shippedAmountDelta,
			},
			NotificationKey: notification.KeyEDF,
			FileTags:        []string{"edf", "energie"},
			FilePattern:     dateutils.DefaultFilePattern,
		}, nil
	case LeclercDrive:
		return konnector.Definition{
			Vendor:   leclercdrive.VendorName,
			BillType: leclercdrive.BillType,
			Link: linker.Options{
				Identifier:   "E.LECLERC",
				MinDateDelta: 4,
				MaxDateDelta: 20,
				AmountDelta:  shippedAmountDelta,
			},
			NotificationKey: notification.KeyLeclercDrive,
			FileTags:        []string{"leclercdrive", "facture"},
			FilePattern:     dateutils.DefaultFilePattern,
		}, nil
	default:
		return konnector.Definition{}, fmt.Errorf("unknown vendor type: %s", vt)
	}
}
