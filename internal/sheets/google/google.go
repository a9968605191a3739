package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saku/internal/core"
	"saku/internal/log"
	ports "saku/internal/sheets"
)

const defaultSheetName = "Journal"

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; each year gets its own "<year> <name>" tab.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Currency        string
}

// valuesAPI is the slice of the Sheets values service the mirror uses.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, rng string, values [][]any) (string, error)
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
	currency      string
	logger        *log.Logger
}

var _ ports.JournalMirror = (*Client)(nil)

// New creates a mirror client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc}, cfg, logger), nil
}

func newClient(values valuesAPI, cfg Config, logger *log.Logger) *Client {
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}
	currency := cfg.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		values:        values,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     name,
		currency:      currency,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	if logger != nil {
		logger.WithComponent(log.ComponentSheets).InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s *serviceValues) Append(ctx context.Context, spreadsheetID, rng string, values [][]any) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// AppendRows writes rows to the tab of their year, one Append call per tab.
func (c *Client) AppendRows(ctx context.Context, rows []ports.JournalRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	byYear := map[int][][]any{}
	var years []int
	for _, r := range rows {
		y := r.Date.UTC().Year()
		if _, ok := byYear[y]; !ok {
			years = append(years, y)
		}
		byYear[y] = append(byYear[y], encodeRow(r, c.currency))
	}
	return c.appendByYear(ctx, years, byYear)
}

// AppendVoids writes one void marker per removed entry.
func (c *Client) AppendVoids(ctx context.Context, voids []ports.VoidRow) (string, error) {
	if len(voids) == 0 {
		return "", nil
	}
	byYear := map[int][][]any{}
	var years []int
	for _, v := range voids {
		at := v.VoidedAt
		if at.IsZero() {
			at = time.Now()
		}
		y := at.UTC().Year()
		if _, ok := byYear[y]; !ok {
			years = append(years, y)
		}
		byYear[y] = append(byYear[y], encodeVoid(v, at))
	}
	return c.appendByYear(ctx, years, byYear)
}

func (c *Client) appendByYear(ctx context.Context, years []int, byYear map[int][][]any) (string, error) {
	var refs []string
	for _, y := range years {
		sheet := yearPrefixedName(c.sheetName, y)
		rng := fmt.Sprintf("%s!A:I", sheet)
		ref, err := c.values.Append(ctx, c.spreadsheetID, rng, byYear[y])
		if err != nil {
			return strings.Join(refs, ","), fmt.Errorf("append to %s: %w", sheet, err)
		}
		c.logger.DebugContext(ctx, "Appended rows", "sheet", sheet, "rows", len(byYear[y]), "range", ref)
		refs = append(refs, ref)
	}
	return strings.Join(refs, ","), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
