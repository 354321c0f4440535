package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
	"finanzas/internal/log"
	ports "finanzas/internal/sheets"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string // base name; the year is prefixed per row
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger
}

// Ensure interface conformance
var (
	_ ports.TransactionExporter = (*Client)(nil)
	_ ports.ExportedLister      = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Movimientos"
	}

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		logger:        logger,
	}, nil
}

// newSheetsService prefers inline JSON, then the credentials file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var opt goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		opt = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		opt = goption.WithCredentialsFile(cfg.CredentialsFile)
	case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "":
		opt = goption.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx, opt, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// AppendTransactions appends rows to the sheet of each row's year. The
// returned reference is the last updated range.
func (c *Client) AppendTransactions(ctx context.Context, rows []core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	byYear := splitByYear(rows)
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var ref string
	for _, year := range years {
		sheet := c.sheetName(year)
		values := make([][]any, 0, len(byYear[year])+1)
		empty, err := c.sheetIsEmpty(ctx, sheet)
		if err != nil {
			return ref, err
		}
		if empty {
			values = append(values, header)
		}
		for _, tx := range byYear[year] {
			values = append(values, rowFor(tx))
		}

		resp, err := c.svc.Spreadsheets.Values.
			Append(c.spreadsheetID, fmt.Sprintf("%s!A:F", sheet), &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return ref, fmt.Errorf("append to sheet %s: %w", sheet, err)
		}
		if resp.Updates != nil {
			ref = resp.Updates.UpdatedRange
		}
		c.logger.InfoContext(ctx, "Appended transactions",
			log.FieldSheetsRef, ref, log.FieldCount, len(byYear[year]), log.FieldYear, year)
	}
	return ref, nil
}

func (c *Client) sheetIsEmpty(ctx context.Context, sheet string) (bool, error) {
	rng := fmt.Sprintf("%s!A1:F1", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) == 0, nil
}

// ListExported reads the year's sheet and keeps the rows dated in month.
func (c *Client) ListExported(ctx context.Context, year int, month int) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	rng := fmt.Sprintf("%s!A:F", c.sheetName(year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return filterMonth(resp.Values, year, month), nil
}

func filterMonth(values [][]any, year, month int) []core.Transaction {
	var out []core.Transaction
	for _, row := range values {
		tx, ok := parseRow(row)
		if !ok || tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func splitByYear(rows []core.Transaction) map[int][]core.Transaction {
	out := make(map[int][]core.Transaction)
	for _, tx := range rows {
		out[tx.Date.Year()] = append(out[tx.Date.Year()], tx)
	}
	return out
}
