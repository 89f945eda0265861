package openfda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

// Failure kinds recorded on a degraded fetch
const (
	FailureRequest   = "request"
	FailureTransport = "transport"
	FailureStatus    = "status"
	FailureRead      = "read"
	FailureParse     = "parse"
)

// FetchError is the absorbed error of a degraded fetch
type FetchError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openfda %s failure (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("openfda %s failure: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// maxErrorBody bounds how much of a non-2xx body is kept for the log
const maxErrorBody = 512

// Client queries the openFDA device/510k endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	committee  string
	userAgent  string
	now        func() time.Time
	logger     *logger.Logger
}

// NewClient creates a new openFDA client
func NewClient(
	baseURL string,
	committee string,
	userAgent string,
	timeout time.Duration,
	logger *logger.Logger,
) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		committee: committee,
		userAgent: userAgent,
		now:       time.Now,
		logger:    logger.Named("openfda-client"),
	}
}

// SetClock replaces the clock used to pick the query window
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// FetchClearances queries daysBack days of clearances (see ComputeWindow) and
// returns at most maxRecords of them from a single page. It never returns an
// error: failures are logged and reported through FetchResult.Outcome with an
// empty, non-nil Records slice.
func (c *Client) FetchClearances(ctx context.Context, daysBack, maxRecords int) *FetchResult {
	if daysBack < 1 {
		daysBack = 1
	}
	if maxRecords < 1 {
		maxRecords = 1000
	}

	window := ComputeWindow(c.now(), daysBack)
	result := &FetchResult{
		Window:  window,
		Search:  BuildSearch(c.committee, window),
		Records: []ClearanceRecord{},
	}

	c.logger.Info("Querying openFDA 510(k) clearances",
		logger.String("committee", c.committee),
		logger.String("start", window.StartString()),
		logger.String("end", window.EndString()),
		logger.Int("days", window.Days()),
		logger.Int("limit", maxRecords),
	)

	start := time.Now()
	err := c.fetch(ctx, result, maxRecords)
	result.Duration = time.Since(start)

	if err != nil {
		result.Records = []ClearanceRecord{}
		result.Outcome = OutcomeFailed
		result.Err = err

		fields := []logger.Field{
			logger.Error(err),
			logger.String("outcome", string(result.Outcome)),
			logger.Duration("duration", result.Duration),
		}
		var fe *FetchError
		if errors.As(err, &fe) {
			fields = append(fields, logger.String("failure", fe.Kind))
		}
		c.logger.Error("openFDA request failed, continuing with no records", fields...)
		return result
	}

	if len(result.Records) == 0 {
		result.Outcome = OutcomeEmpty
	} else {
		result.Outcome = OutcomeOK
	}

	c.logger.Info("Found clearances",
		logger.Int("count", len(result.Records)),
		logger.String("outcome", string(result.Outcome)),
		logger.Duration("duration", result.Duration),
	)
	if result.Truncated() {
		c.logger.Warn("More matches upstream than the record limit; extra records are not fetched",
			logger.Int64("total", result.Total),
			logger.Int("returned", len(result.Records)),
		)
	}
	return result
}

// requestURL builds the GET URL with search and limit parameters
func (c *Client) requestURL(search string, limit int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("search", search)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetch(ctx context.Context, result *FetchResult, limit int) error {
	reqURL, err := c.requestURL(result.Search, limit)
	if err != nil {
		return &FetchError{Kind: FailureRequest, Err: fmt.Errorf("failed to build request URL: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Kind: FailureRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Fetching openFDA data", logger.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Kind: FailureTransport, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Kind: FailureRead, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// openFDA reports "no matches" as a 404 with error.code NOT_FOUND
		if resp.StatusCode == http.StatusNotFound && gjson.GetBytes(body, "error.code").String() == "NOT_FOUND" {
			c.logger.Debug("openFDA reported no matches",
				logger.String("message", gjson.GetBytes(body, "error.message").String()))
			return nil
		}
		return &FetchError{
			Kind:       FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, preview(body)),
		}
	}

	records, total, err := parseResults(body)
	if err != nil {
		return &FetchError{Kind: FailureParse, StatusCode: resp.StatusCode, Err: err}
	}
	result.Records = records
	result.Total = total
	return nil
}

// parseResults reads the top-level "results" array. A missing array means no
// records; anything else that is not an array is malformed.
func parseResults(body []byte) ([]ClearanceRecord, int64, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("failed to parse JSON: invalid document: %s", preview(body))
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, 0, fmt.Errorf("failed to parse JSON: top level is not an object")
	}

	total := doc.Get("meta.results.total").Int()

	results := doc.Get("results")
	if !results.Exists() || results.Type == gjson.Null {
		return []ClearanceRecord{}, total, nil
	}
	if !results.IsArray() {
		return nil, 0, fmt.Errorf("failed to parse JSON: results is not an array")
	}

	records := []ClearanceRecord{}
	results.ForEach(func(_, item gjson.Result) bool {
		records = append(records, recordFromJSON(item))
		return true
	})
	return records, total, nil
}

func recordFromJSON(item gjson.Result) ClearanceRecord {
	return ClearanceRecord{
		KNumber:           field(item, "k_number"),
		Applicant:         field(item, "applicant"),
		DeviceName:        field(item, "device_name"),
		DecisionDate:      field(item, "decision_date"),
		AdvisoryCommittee: field(item, "advisory_committee"),
		DecisionCode:      field(item, "decision_code"),
	}
}

// field returns a string value as-is, other scalars as their JSON text, and
// "" for absent or null values.
func field(item gjson.Result, name string) string {
	v := item.Get(name)
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

func preview(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
