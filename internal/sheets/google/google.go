// Package google exports monthly reports to a Google spreadsheet, one tab per user and month.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	ports "github.com/prathap-k00/expense-tracker/internal/sheets"
)

var _ ports.ReportWriter = (*Client)(nil)

var (
	ErrMissingSpreadsheetID = errors.New("missing Google spreadsheet id")
	ErrMissingCredentials   = errors.New("missing service account or oauth credentials")
)

// Options configure New. CredentialsJSON wins over CredentialsFile, and a service account
// wins over the OAuth client and token pair written by cmd/sheets-auth.
type Options struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string

	OAuthClientFile string
	OAuthTokenFile  string

	// ClientOptions are appended after the credentials, e.g. an endpoint override.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, ErrMissingSpreadsheetID
	}

	auth, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	clientOpts := append(auth, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", id)
	return NewWithService(svc, id), nil
}

// NewWithService wraps an existing service, letting callers choose the transport and auth.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	creds, err := serviceAccountJSON(opts)
	if err == nil {
		return []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}
	if !errors.Is(err, ErrMissingCredentials) {
		return nil, err
	}

	if strings.TrimSpace(opts.OAuthClientFile) == "" || strings.TrimSpace(opts.OAuthTokenFile) == "" {
		return nil, ErrMissingCredentials
	}
	ts, err := OAuthTokenSource(ctx, opts.OAuthClientFile, opts.OAuthTokenFile)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
}

// OAuthConfig reads an installed-app client file for the spreadsheets scope.
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := oauthgoogle.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// OAuthTokenSource refreshes the saved user token as needed.
func OAuthTokenSource(ctx context.Context, clientFile, tokenFile string) (oauth2.TokenSource, error) {
	cfg, err := OAuthConfig(clientFile)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// SaveOAuthToken writes tok with owner-only permissions.
func SaveOAuthToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func serviceAccountJSON(opts Options) ([]byte, error) {
	if j := strings.TrimSpace(opts.CredentialsJSON); j != "" {
		return []byte(j), nil
	}
	if path := strings.TrimSpace(opts.CredentialsFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, ErrMissingCredentials
}

// TabTitle names the tab holding a user's month, e.g. "2024-03 u7".
func TabTitle(userID int64, p core.Period) string {
	return fmt.Sprintf("%s u%d", p.Key(), userID)
}

// WriteMonthlyReport creates the tab when missing, clears it and writes the report in one batch.
func (c *Client) WriteMonthlyReport(ctx context.Context, r reports.MonthlyReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := TabTitle(r.UserID, r.Period)

	if err := c.ensureTab(ctx, title); err != nil {
		return "", err
	}

	all := quoteTab(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear tab %q: %w", title, err)
	}

	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{{
			Range:  all + "!A1",
			Values: ReportValues(r),
		}},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write tab %q: %w", title, err)
	}

	return fmt.Sprintf("sheets:%s#%s", c.spreadsheetID, title), nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	add := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %q: %w", title, err)
	}
	return nil
}

// ReportValues lays the report out as summary lines, a blank row and the expense table.
func ReportValues(r reports.MonthlyReport) [][]interface{} {
	values := [][]interface{}{
		{r.Title()},
		{"Total Income", centsToDecimal(r.Income)},
		{"Total Expense", centsToDecimal(r.Expense)},
		{"Savings", centsToDecimal(r.Savings())},
		{},
		{"Date", "Category", "Amount", "Description"},
	}
	for _, row := range r.Rows {
		values = append(values, []interface{}{
			row.Date.String(),
			row.Category,
			centsToDecimal(row.Amount),
			row.Description,
		})
	}
	return values
}

// centsToDecimal keeps two decimals and no grouping so USER_ENTERED parses a number.
func centsToDecimal(m core.Money) string {
	return m.Decimal().StringFixed(2)
}

func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
