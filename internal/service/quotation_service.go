package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/repository"
)

// DefaultCurrency is used when a quotation is created without one.
const DefaultCurrency = "HNL"

// QuotationService owns the quotation workflows.  All multi-statement
// operations run inside transactions opened on the shared handle; the
// acceptance path additionally requires serializable isolation (see
// accept.go).
type QuotationService struct {
	db              *sql.DB
	quotes          *repository.QuotationRepo
	items           *repository.ItemRepo
	events          *repository.EventRepo
	reservation     *repository.ReservationRepo
	quotePrefix     string
	defaultCurrency string
}

// NewQuotationService wires the service with its repositories.
// quotePrefix is the leading segment of generated quote numbers
// (e.g. "AVV" yields AVV-2026-0001); defaultCurrency is assumed when a
// new quotation omits one.
func NewQuotationService(db *sql.DB, quotes *repository.QuotationRepo, items *repository.ItemRepo,
	events *repository.EventRepo, reservation *repository.ReservationRepo,
	quotePrefix, defaultCurrency string) *QuotationService {
	if quotePrefix == "" {
		quotePrefix = "AVV"
	}
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &QuotationService{
		db:              db,
		quotes:          quotes,
		items:           items,
		events:          events,
		reservation:     reservation,
		quotePrefix:     quotePrefix,
		defaultCurrency: defaultCurrency,
	}
}

// nextQuoteNumberTx generates the next sequential quote number for the
// current year, format PREFIX-YYYY-NNNN.  It must run inside the
// creation transaction so two concurrent creates cannot both observe
// the same maximum.
func (s *QuotationService) nextQuoteNumberTx(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", s.quotePrefix, now.UTC().Year())
	last, err := s.quotes.MaxQuoteNumberTx(ctx, tx, yearPrefix+"%")
	if err != nil {
		return "", err
	}
	n := 1
	if last != "" {
		parts := strings.Split(last, "-")
		if v, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			n = v + 1
		}
	}
	return fmt.Sprintf("%s%04d", yearPrefix, n), nil
}

// LineInput describes one requested quotation line.  UnitPrice and
// TaxRate are optional overrides; when nil the item's current defaults
// are snapshotted.
type LineInput struct {
	ItemID      uint64     `json:"item_id"`
	Quantity    float64    `json:"quantity"`
	DiscountPct float64    `json:"discount_pct"`
	UnitPrice   *float64   `json:"unit_price"`
	TaxRate     *float64   `json:"tax_rate"`
	CustomName  *string    `json:"custom_name"`
	Description *string    `json:"description"`
	Section     *string    `json:"section"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

func validateLineInput(in LineInput) error {
	if in.ItemID == 0 {
		return &ValidationError{Msg: "item_id is required"}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Msg: "quantity must be positive"}
	}
	if in.DiscountPct < 0 || in.DiscountPct > 100 {
		return &ValidationError{Msg: "discount_pct must be between 0 and 100"}
	}
	if in.UnitPrice != nil && *in.UnitPrice < 0 {
		return &ValidationError{Msg: "unit_price must not be negative"}
	}
	if in.TaxRate != nil && (*in.TaxRate < 0 || *in.TaxRate > 100) {
		return &ValidationError{Msg: "tax_rate must be between 0 and 100"}
	}
	if in.StartAt != nil && in.EndAt != nil && !in.EndAt.After(*in.StartAt) {
		return &ValidationError{Msg: "line end must be after start"}
	}
	return nil
}

// buildLine snapshots item metadata onto a new line.
func buildLine(quotationID uint64, in LineInput, it model.Item, sortOrder int) model.QuotationLine {
	price := it.DefaultRate
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	tax := it.TaxRate
	if in.TaxRate != nil {
		tax = *in.TaxRate
	}
	name := it.Name
	if in.CustomName != nil && strings.TrimSpace(*in.CustomName) != "" {
		name = strings.TrimSpace(*in.CustomName)
	}
	unit := it.Unit
	if unit == "" {
		unit = "unit"
	}
	return model.QuotationLine{
		QuotationID: quotationID,
		ItemID:      it.ID,
		CustomName:  name,
		Description: in.Description,
		Section:     in.Section,
		ItemType:    it.ItemType,
		Quantity:    in.Quantity,
		Unit:        unit,
		UnitPrice:   price,
		DiscountPct: in.DiscountPct,
		TaxRate:     tax,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		SortOrder:   sortOrder,
	}
}

// QuotationInput describes a new quotation header plus optional initial
// lines.
type QuotationInput struct {
	ClientID      uint64      `json:"client_id"`
	ContactID     *uint64     `json:"contact_id"`
	EventID       *uint64     `json:"event_id"`
	OwnerID       uint64      `json:"owner_id"`
	Currency      string      `json:"currency"`
	ExchangeRate  float64     `json:"exchange_rate"`
	DepositDue    float64     `json:"deposit_due"`
	ValidUntil    *time.Time  `json:"valid_until"`
	NotesInternal *string     `json:"notes_internal"`
	NotesClient   *string     `json:"notes_client"`
	Terms         *string     `json:"terms"`
	Lines         []LineInput `json:"lines"`
}

// Create builds a draft quotation: sequential quote number, header,
// initial "created" history row, snapshotted lines and computed totals,
// all in one serializable transaction.
func (s *QuotationService) Create(ctx context.Context, in QuotationInput) (model.Quotation, error) {
	if in.ClientID == 0 || in.OwnerID == 0 {
		return model.Quotation{}, &ValidationError{Msg: "client_id and owner_id are required"}
	}
	for _, li := range in.Lines {
		if err := validateLineInput(li); err != nil {
			return model.Quotation{}, err
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	} else if len(currency) != 3 {
		return model.Quotation{}, &ValidationError{Msg: "currency must be a 3-letter code"}
	}
	rate := in.ExchangeRate
	if rate <= 0 {
		rate = 1.0
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return model.Quotation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	number, err := s.nextQuoteNumberTx(ctx, tx, now)
	if err != nil {
		return model.Quotation{}, err
	}

	q := model.Quotation{
		QuoteNumber:   number,
		PublicRef:     uuid.NewString(),
		ClientID:      in.ClientID,
		ContactID:     in.ContactID,
		EventID:       in.EventID,
		OwnerID:       in.OwnerID,
		Currency:      currency,
		ExchangeRate:  rate,
		Status:        model.StatusDraft,
		DepositDue:    in.DepositDue,
		ValidUntil:    in.ValidUntil,
		NotesInternal: in.NotesInternal,
		NotesClient:   in.NotesClient,
		Terms:         in.Terms,
	}
	if err := s.quotes.CreateTx(ctx, tx, &q); err != nil {
		return model.Quotation{}, err
	}

	newStatus := model.StatusDraft
	note := "created as draft"
	changedBy := in.OwnerID
	if err := s.quotes.AddHistoryTx(ctx, tx, model.StatusChange{
		QuotationID: q.ID,
		NewStatus:   newStatus,
		ChangedBy:   &changedBy,
		Note:        &note,
	}); err != nil {
		return model.Quotation{}, err
	}

	if len(in.Lines) > 0 {
		itemIDs := make([]uint64, 0, len(in.Lines))
		for _, li := range in.Lines {
			itemIDs = append(itemIDs, li.ItemID)
		}
		meta, err := s.items.MetaByIDsTx(ctx, tx, itemIDs)
		if err != nil {
			return model.Quotation{}, err
		}
		lines := make([]model.QuotationLine, 0, len(in.Lines))
		for i, li := range in.Lines {
			it, ok := meta[li.ItemID]
			if !ok {
				return model.Quotation{}, &ValidationError{Msg: fmt.Sprintf("item %d does not exist", li.ItemID)}
			}
			if !it.Active {
				return model.Quotation{}, &ValidationError{Msg: fmt.Sprintf("item %d is inactive", li.ItemID)}
			}
			lines = append(lines, buildLine(q.ID, li, it, i+1))
		}
		if err := s.quotes.InsertLinesTx(ctx, tx, lines); err != nil {
			return model.Quotation{}, err
		}
		t, err := s.recomputeTx(ctx, tx, q.ID)
		if err != nil {
			return model.Quotation{}, err
		}
		q.Subtotal, q.DiscountTotal, q.TaxTotal, q.Total = t.Subtotal, t.DiscountTotal, t.TaxTotal, t.Total
	}

	if err := tx.Commit(); err != nil {
		return model.Quotation{}, err
	}
	committed = true
	return q, nil
}

// requireDraft loads a quotation and ensures line mutations are still
// allowed.
func (s *QuotationService) requireDraft(ctx context.Context, quotationID uint64) (model.Quotation, error) {
	q, err := s.quotes.GetByID(ctx, quotationID)
	if err != nil {
		return model.Quotation{}, err
	}
	if q.Status != model.StatusDraft {
		return model.Quotation{}, &ConflictError{From: q.Status, To: "line change"}
	}
	return q, nil
}

// AddLine appends a line to a draft quotation and recomputes totals.
func (s *QuotationService) AddLine(ctx context.Context, quotationID uint64, in LineInput) (Totals, error) {
	if _, err := s.requireDraft(ctx, quotationID); err != nil {
		return Totals{}, err
	}
	if err := validateLineInput(in); err != nil {
		return Totals{}, err
	}
	it, err := s.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return Totals{}, err
	}
	if !it.Active {
		return Totals{}, &ValidationError{Msg: fmt.Sprintf("item %d is inactive", it.ID)}
	}
	order, err := s.quotes.NextSortOrder(ctx, quotationID)
	if err != nil {
		return Totals{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Totals{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.quotes.InsertLinesTx(ctx, tx, []model.QuotationLine{buildLine(quotationID, in, it, order)}); err != nil {
		return Totals{}, err
	}
	t, err := s.recomputeTx(ctx, tx, quotationID)
	if err != nil {
		return Totals{}, err
	}
	if err := tx.Commit(); err != nil {
		return Totals{}, err
	}
	committed = true
	return t, nil
}

// UpdateLine rewrites an existing line of a draft quotation and
// recomputes totals.  The item reference and type snapshot are fixed;
// quantities, prices, window and descriptive fields may change.
func (s *QuotationService) UpdateLine(ctx context.Context, quotationID, lineID uint64, in LineInput) (Totals, error) {
	if _, err := s.requireDraft(ctx, quotationID); err != nil {
		return Totals{}, err
	}
	lines, err := s.quotes.LinesByQuotation(ctx, quotationID)
	if err != nil {
		return Totals{}, err
	}
	var current *model.QuotationLine
	for i := range lines {
		if lines[i].ID == lineID {
			current = &lines[i]
			break
		}
	}
	if current == nil {
		return Totals{}, repository.ErrLineNotFound
	}
	in.ItemID = current.ItemID
	if err := validateLineInput(in); err != nil {
		return Totals{}, err
	}

	l := *current
	l.Quantity = in.Quantity
	l.DiscountPct = in.DiscountPct
	if in.UnitPrice != nil {
		l.UnitPrice = *in.UnitPrice
	}
	if in.TaxRate != nil {
		l.TaxRate = *in.TaxRate
	}
	if in.CustomName != nil && strings.TrimSpace(*in.CustomName) != "" {
		l.CustomName = strings.TrimSpace(*in.CustomName)
	}
	if in.Description != nil {
		l.Description = in.Description
	}
	if in.Section != nil {
		l.Section = in.Section
	}
	l.StartAt = in.StartAt
	l.EndAt = in.EndAt

	if err := s.quotes.UpdateLine(ctx, l); err != nil {
		return Totals{}, err
	}
	return s.RecomputeTotals(ctx, quotationID)
}

// DeleteLine removes a line from a draft quotation and recomputes
// totals.
func (s *QuotationService) DeleteLine(ctx context.Context, quotationID, lineID uint64) (Totals, error) {
	if _, err := s.requireDraft(ctx, quotationID); err != nil {
		return Totals{}, err
	}
	if err := s.quotes.DeleteLine(ctx, quotationID, lineID); err != nil {
		return Totals{}, err
	}
	return s.RecomputeTotals(ctx, quotationID)
}

// HeaderInput carries the editable header fields of a quotation.
type HeaderInput struct {
	ContactID     *uint64    `json:"contact_id"`
	EventID       *uint64    `json:"event_id"`
	Currency      *string    `json:"currency"`
	ExchangeRate  *float64   `json:"exchange_rate"`
	DepositDue    *float64   `json:"deposit_due"`
	ValidUntil    *time.Time `json:"valid_until"`
	NotesInternal *string    `json:"notes_internal"`
	NotesClient   *string    `json:"notes_client"`
	Terms         *string    `json:"terms"`
}

// UpdateHeader edits header fields of a draft quotation.  Nil fields
// are left unchanged.
func (s *QuotationService) UpdateHeader(ctx context.Context, quotationID uint64, in HeaderInput) (model.Quotation, error) {
	q, err := s.requireDraft(ctx, quotationID)
	if err != nil {
		return model.Quotation{}, err
	}
	if in.ContactID != nil {
		q.ContactID = in.ContactID
	}
	if in.EventID != nil {
		q.EventID = in.EventID
	}
	if in.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(c) != 3 {
			return model.Quotation{}, &ValidationError{Msg: "currency must be a 3-letter code"}
		}
		q.Currency = c
	}
	if in.ExchangeRate != nil {
		if *in.ExchangeRate <= 0 {
			return model.Quotation{}, &ValidationError{Msg: "exchange_rate must be positive"}
		}
		q.ExchangeRate = *in.ExchangeRate
	}
	if in.DepositDue != nil {
		if *in.DepositDue < 0 {
			return model.Quotation{}, &ValidationError{Msg: "deposit_due must not be negative"}
		}
		q.DepositDue = *in.DepositDue
	}
	if in.ValidUntil != nil {
		q.ValidUntil = in.ValidUntil
	}
	if in.NotesInternal != nil {
		q.NotesInternal = in.NotesInternal
	}
	if in.NotesClient != nil {
		q.NotesClient = in.NotesClient
	}
	if in.Terms != nil {
		q.Terms = in.Terms
	}
	if err := s.quotes.UpdateHeader(ctx, q); err != nil {
		return model.Quotation{}, err
	}
	return q, nil
}

// Delete removes a quotation; only drafts and cancelled quotes may go.
func (s *QuotationService) Delete(ctx context.Context, quotationID uint64) error {
	q, err := s.quotes.GetByID(ctx, quotationID)
	if err != nil {
		return err
	}
	if q.Status != model.StatusDraft && q.Status != model.StatusCancelled {
		return &ConflictError{From: q.Status, To: "deleted"}
	}
	return s.quotes.Delete(ctx, quotationID)
}
