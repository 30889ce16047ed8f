package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/normalize"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
)

// parsedFields is the typed view of one record after field normalization.
// One record carries one order-line observation, optionally enriched with
// invoice and payment references.
type parsedFields struct {
	account     string
	product     string
	quantity    valueobject.Quantity
	orderDate   time.Time
	windowStart time.Time
	windowEnd   time.Time
	dayOfWeek   string
	poNumber    string
	unitPrice   *valueobject.Money
	amount      *valueobject.Money
	invoiceNo   string
	paymentRef  string
	status      trade.OrderStatus
	remark      string
}

// sourceStatuses maps the status tokens sources report onto order statuses
var sourceStatuses = map[string]trade.OrderStatus{
	"open":      trade.OrderStatusOpen,
	"new":       trade.OrderStatusOpen,
	"fulfilled": trade.OrderStatusFulfilled,
	"delivered": trade.OrderStatusFulfilled,
	"shipped":   trade.OrderStatusFulfilled,
	"invoiced":  trade.OrderStatusInvoiced,
	"billed":    trade.OrderStatusInvoiced,
	"cancelled": trade.OrderStatusCancelled,
	"canceled":  trade.OrderStatusCancelled,
	"void":      trade.OrderStatusCancelled,
}

// parseRecord runs every declared field through its normalizer. Failures
// on required fields accumulate and reject the record as a whole;
// optional-field failures degrade to warnings on the record and parsing
// continues.
func parseRecord(record *ingestion.Record, cfg Config) (*parsedFields, []error) {
	var (
		out  parsedFields
		errs []error
	)

	// Account is required. Weekly-sheet labels may smuggle the PO number
	// ("Crown - PO # 779322"); split it off before resolution sees it.
	if raw, ok := record.Field(ingestion.FieldAccount); ok {
		customer, poHint := normalize.ExtractCustomerPO(raw)
		out.account = customer
		if poHint != "" {
			out.poNumber = normalize.ExtractPONumber("PO " + poHint)
		}
	} else {
		errs = append(errs, fmt.Errorf("%w: %s", ingestion.ErrMissingField, ingestion.FieldAccount))
	}

	if raw, ok := record.Field(ingestion.FieldProduct); ok {
		out.product = raw
	} else {
		errs = append(errs, fmt.Errorf("%w: %s", ingestion.ErrMissingField, ingestion.FieldProduct))
	}

	if raw, ok := record.Field(ingestion.FieldQuantity); ok {
		unit := cfg.DefaultUnit
		if u, ok := record.Field(ingestion.FieldUnit); ok {
			unit = u
		}
		qty, err := parseQuantityWithUnit(raw, unit)
		switch {
		case err != nil:
			errs = append(errs, err)
		case qty.IsZero():
			errs = append(errs, fmt.Errorf("%w: zero quantity %q", normalize.ErrUnparseableQuantity, raw))
		default:
			out.quantity = qty
		}
	} else {
		errs = append(errs, fmt.Errorf("%w: %s", ingestion.ErrMissingField, ingestion.FieldQuantity))
	}

	// Order date is required but a weekly record may only carry its
	// fulfillment window; the window start stands in with a warning.
	if raw, ok := record.Field(ingestion.FieldWindowStart); ok {
		if t, err := normalize.ParseDate(raw, cfg.DateFormats); err == nil {
			out.windowStart = t
		} else {
			record.AddWarning(fmt.Sprintf("window start %q unreadable", raw))
		}
	}
	if raw, ok := record.Field(ingestion.FieldWindowEnd); ok {
		if t, err := normalize.ParseDate(raw, cfg.DateFormats); err == nil {
			out.windowEnd = t
		} else {
			record.AddWarning(fmt.Sprintf("window end %q unreadable", raw))
		}
	}
	if raw, ok := record.Field(ingestion.FieldOrderDate); ok {
		t, err := normalize.ParseDate(raw, cfg.DateFormats)
		if err != nil {
			errs = append(errs, err)
		} else {
			out.orderDate = t
		}
	} else if !out.windowStart.IsZero() {
		out.orderDate = out.windowStart
		record.AddWarning("order date missing, using window start")
	} else {
		errs = append(errs, fmt.Errorf("%w: %s", ingestion.ErrMissingField, ingestion.FieldOrderDate))
	}

	if raw, ok := record.Field(ingestion.FieldPONumber); ok {
		if po := normalize.ExtractPONumber(raw); po != "" {
			out.poNumber = po
		} else {
			out.poNumber = raw
		}
	}
	if raw, ok := record.Field(ingestion.FieldRemark); ok {
		out.remark = raw
		if out.poNumber == "" {
			out.poNumber = normalize.ExtractPONumber(raw)
		}
	}

	if raw, ok := record.Field(ingestion.FieldUnitPrice); ok {
		if d, err := normalize.CleanCurrency(raw); err == nil {
			m := valueobject.NewMoneyUSD(d)
			out.unitPrice = &m
		} else {
			record.AddWarning(fmt.Sprintf("unit price %q unreadable", raw))
		}
	}
	if raw, ok := record.Field(ingestion.FieldAmount); ok {
		if d, err := normalize.CleanCurrency(raw); err == nil {
			m := valueobject.NewMoneyUSD(d)
			out.amount = &m
		} else {
			record.AddWarning(fmt.Sprintf("amount %q unreadable", raw))
		}
	}

	if raw, ok := record.Field(ingestion.FieldStatus); ok {
		if status, ok := sourceStatuses[strings.ToLower(raw)]; ok {
			out.status = status
		} else {
			record.AddWarning(fmt.Sprintf("status %q not recognized", raw))
		}
	}

	out.invoiceNo, _ = record.Field(ingestion.FieldInvoiceNo)
	out.paymentRef, _ = record.Field(ingestion.FieldPaymentRef)
	out.dayOfWeek, _ = record.Field(ingestion.FieldDayOfWeek)

	if len(errs) > 0 {
		return nil, errs
	}
	return &out, nil
}

// parseQuantityWithUnit parses the quantity, resolving an explicit unit
// token through the alias table first
func parseQuantityWithUnit(raw, unit string) (valueobject.Quantity, error) {
	if unit != "" {
		canonical, err := normalize.CanonicalUnit(unit)
		if err != nil {
			return valueobject.Quantity{}, err
		}
		unit = canonical
	}
	return normalize.ParseQuantity(raw, unit)
}

// joinReasons flattens parse errors into one rejection reason
func joinReasons(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
