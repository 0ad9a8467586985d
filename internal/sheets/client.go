package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vin_appraisal/internal/tabular"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultExportBaseURL is the public export host for Google Sheets.
const DefaultExportBaseURL = "https://docs.google.com"

// maxSheetBytes caps how much of an export body is read.
const maxSheetBytes = 32 << 20

// ExportClient downloads a sheet through the public CSV export endpoint.
// It needs no credentials; the sheet must be shared for link viewing.
type ExportClient struct {
	baseURL string
	client  *http.Client
}

// NewExportClient creates an ExportClient. An empty baseURL uses DefaultExportBaseURL.
func NewExportClient(baseURL string) *ExportClient {
	if baseURL == "" {
		baseURL = DefaultExportBaseURL
	}
	return &ExportClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ExportURL returns the CSV export address for ref.
func (c *ExportClient) ExportURL(ref Reference) string {
	q := url.Values{}
	q.Set("format", "csv")
	if ref.GID != "" {
		q.Set("gid", ref.GID)
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", c.baseURL, url.PathEscape(ref.ID), q.Encode())
}

// Fetch returns the raw delimited text of the sheet behind sheetURL.
func (c *ExportClient) Fetch(ctx context.Context, sheetURL string) (string, error) {
	ref, err := ResolveReference(sheetURL)
	if err != nil {
		return "", err
	}

	exportURL := c.ExportURL(ref)
	log.Debug().Str("sheet_id", ref.ID).Str("gid", ref.GID).Str("url", exportURL).Msg("Fetching sheet export")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch sheet: status %d (is the sheet shared for anyone with the link?)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read sheet body: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", ErrEmptySheet
	}

	log.Debug().Int("bytes", len(body)).Str("sheet_id", ref.ID).Msg("Fetched sheet export")
	return string(body), nil
}

// APIClient reads sheet values through the Sheets API and renders them as
// delimited text, so both clients feed the same parser.
type APIClient struct {
	service   *sheets.Service
	readRange string
}

// NewAPIClient creates an APIClient for public sheets using an API key.
// Extra options are appended, which lets tests point it at a local endpoint.
func NewAPIClient(ctx context.Context, apiKey, readRange string, opts ...option.ClientOption) (*APIClient, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if readRange == "" {
		readRange = "A1:ZZ"
	}

	return &APIClient{
		service:   service,
		readRange: readRange,
	}, nil
}

// ReadSheet returns the cell values of range_ in spreadsheetID.
func (c *APIClient) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

// Fetch reads the configured range of the sheet behind sheetURL as delimited text.
func (c *APIClient) Fetch(ctx context.Context, sheetURL string) (string, error) {
	ref, err := ResolveReference(sheetURL)
	if err != nil {
		return "", err
	}

	values, err := c.ReadSheet(ctx, ref.ID, c.readRange)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", ErrEmptySheet
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellText(cell)
		}
	}

	log.Debug().Int("rows", len(rows)).Str("sheet_id", ref.ID).Str("range", c.readRange).Msg("Read sheet values")
	return tabular.Format(rows[0], rows[1:]), nil
}

// cellText renders a cell value without line breaks, which the parser cannot carry.
func cellText(cell interface{}) string {
	if cell == nil {
		return ""
	}
	text := fmt.Sprintf("%v", cell)
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
}
