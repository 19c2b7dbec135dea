package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/reports"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if !errors.Is(err, ErrMissingSpreadsheetID) {
		t.Fatalf("expected ErrMissingSpreadsheetID, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestServiceAccountJSONSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}

	got, err := serviceAccountJSON(Options{CredentialsFile: path})
	if err != nil || !strings.Contains(string(got), "service_account") {
		t.Fatalf("file credentials = %q, %v", got, err)
	}

	got, err = serviceAccountJSON(Options{CredentialsFile: path, CredentialsJSON: `{"inline":true}`})
	if err != nil || string(got) != `{"inline":true}` {
		t.Fatalf("inline JSON should win, got %q, %v", got, err)
	}

	if _, err := serviceAccountJSON(Options{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatalf("expected read error")
	}
}

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthTokenSource(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatalf("write client: %v", err)
	}

	if _, err := OAuthTokenSource(context.Background(), clientFile, tokenFile); err == nil {
		t.Fatalf("expected error for missing token file")
	}

	want := &oauth2.Token{AccessToken: "test", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := SaveOAuthToken(tokenFile, want); err != nil {
		t.Fatalf("SaveOAuthToken: %v", err)
	}
	info, err := os.Stat(tokenFile)
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode = %v, %v", info, err)
	}

	ts, err := OAuthTokenSource(context.Background(), clientFile, tokenFile)
	if err != nil {
		t.Fatalf("OAuthTokenSource: %v", err)
	}
	got, err := ts.Token()
	if err != nil || got.AccessToken != "test" {
		t.Fatalf("Token() = %v, %v", got, err)
	}
}

func TestOAuthConfigRejectsBadClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write client: %v", err)
	}
	_, err := OAuthConfig(path)
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestCredentialOptionsNeedsBothOAuthFiles(t *testing.T) {
	_, err := credentialOptions(context.Background(), Options{OAuthClientFile: "client.json"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTabTitle(t *testing.T) {
	if got := TabTitle(7, core.NewPeriod(2024, 3)); got != "2024-03 u7" {
		t.Fatalf("TabTitle = %q", got)
	}
	if got := quoteTab("it's"); got != "'it''s'" {
		t.Fatalf("quoteTab = %q", got)
	}
}

func sampleReport() reports.MonthlyReport {
	return reports.NewMonthlyReport(7, core.NewPeriod(2024, 3), "Demo", core.Money{Cents: 5000000}, []core.Expense{
		{CategoryName: "Food", Amount: core.Money{Cents: 123450}, Date: core.NewDate(2024, 3, 2), Description: "Groceries"},
		{CategoryName: "Rent", Amount: core.Money{Cents: 1500000}, Date: core.NewDate(2024, 3, 5)},
	})
}

func TestReportValues(t *testing.T) {
	values := ReportValues(sampleReport())
	if len(values) != 8 {
		t.Fatalf("rows = %d, want 6 + 2 expenses", len(values))
	}
	if values[0][0] != "Expense Report - March 2024" {
		t.Fatalf("title row = %v", values[0])
	}
	if values[2][1] != "16234.50" {
		t.Fatalf("total expense = %v", values[2][1])
	}
	if values[6][0] != "2024-03-02" || values[6][2] != "1234.50" {
		t.Fatalf("first expense = %v", values[6])
	}
}

// fakeSheetsAPI answers the four Sheets v4 calls the writer makes.
type fakeSheetsAPI struct {
	mu      sync.Mutex
	tabs    []string
	cleared []string
	written []*gsheet.BatchUpdateValuesRequest
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/values:batchUpdate"):
		var req gsheet.BatchUpdateValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.written = append(f.written, &req)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case strings.HasSuffix(path, "/spreadsheets/sheet-1:batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		ss := gsheet.Spreadsheet{SpreadsheetId: "sheet-1"}
		for _, title := range f.tabs {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-1")
}

func TestWriteMonthlyReport(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	ref, err := c.WriteMonthlyReport(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("WriteMonthlyReport: %v", err)
	}
	if ref != "sheets:sheet-1#2024-03 u7" {
		t.Fatalf("ref = %q", ref)
	}

	// A second export of the same month reuses the tab.
	if _, err := c.WriteMonthlyReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("second write: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.tabs) != 1 || api.tabs[0] != "2024-03 u7" {
		t.Fatalf("tabs = %v", api.tabs)
	}
	if len(api.cleared) != 2 || len(api.written) != 2 {
		t.Fatalf("cleared=%d written=%d, want 2 each", len(api.cleared), len(api.written))
	}
	req := api.written[0]
	if req.ValueInputOption != "USER_ENTERED" || len(req.Data) != 1 {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Data[0].Range != "'2024-03 u7'!A1" || len(req.Data[0].Values) != 8 {
		t.Fatalf("unexpected data %s, %d rows", req.Data[0].Range, len(req.Data[0].Values))
	}
}

func TestWriteMonthlyReportPropagatesAPIErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	if _, err := c.WriteMonthlyReport(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error")
	}
}
