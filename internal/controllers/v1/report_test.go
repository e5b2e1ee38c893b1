package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/ipupy-tesoreria/backend/internal/controllers/v1"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/ipupy-tesoreria/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReport(t *testing.T, r v1.ReportEditable, expectedStatus ...int) v1.ReportResponse {
	if r.ChurchID == uuid.Nil {
		r.ChurchID = createTestChurch(t, v1.ChurchEditable{}).Data.ID
	}

	if r.Year == 0 {
		r.Year = 2026
	}

	if r.Month == 0 {
		r.Month = 1
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.ReportEditable{r}

	recorder := test.Request(t, http.MethodPost, "http://example.com/v1/reports", body, test.Admin(t))
	test.AssertHTTPStatus(t, &recorder, expectedStatus...)

	var report v1.ReportCreateResponse
	test.DecodeResponse(t, &recorder, &report)

	if recorder.Code == http.StatusCreated {
		return report.Data[0]
	}

	return v1.ReportResponse{}
}

// transitionTestReport posts a state transition for the report and returns
// the updated resource.
func transitionTestReport(t *testing.T, report v1.ReportResponse, step string, version int, expectedStatus ...int) v1.ReportResponse {
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusOK)
	}

	r := test.Request(t, http.MethodPost, fmt.Sprintf("%s/%s", report.Data.Links.Self, step), v1.ReportTransitionRequest{Version: version}, test.Admin(t))
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var response v1.ReportResponse
	test.DecodeResponse(t, &r, &response)

	if r.Code == http.StatusOK {
		return response
	}

	return report
}

// TestReportsDBClosed verifies that errors are processed correctly when
// the database is closed.
func (suite *TestSuiteStandard) TestReportsDBClosed() {
	c := createTestChurch(suite.T(), v1.ChurchEditable{})

	tests := []struct {
		name string             // Name of the test
		test func(t *testing.T) // Code to run
	}{
		{
			"Creation fails",
			func(t *testing.T) {
				createTestReport(t, v1.ReportEditable{ChurchID: c.Data.ID}, http.StatusInternalServerError)
			},
		},
		{
			"GET fails",
			func(t *testing.T) {
				recorder := test.Request(t, http.MethodGet, "http://example.com/v1/reports", "", test.Admin(t))
				test.AssertHTTPStatus(t, &recorder, http.StatusInternalServerError)

				var response v1.ReportListResponse
				test.DecodeResponse(t, &recorder, &response)
				assert.Contains(t, *response.Error, models.ErrGeneral.Error())
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			suite.CloseDB()

			tt.test(t)
		})
	}
}

// TestReportsOptions verifies that OPTIONS requests are handled correctly.
func (suite *TestSuiteStandard) TestReportsOptions() {
	report := createTestReport(suite.T(), v1.ReportEditable{})

	tests := []struct {
		name   string
		path   string
		status int
		allow  string
	}{
		{"Report exists", report.Data.ID.String(), http.StatusNoContent, "OPTIONS, GET, PATCH, DELETE"},
		{"No Report with this ID", uuid.New().String(), http.StatusNotFound, ""},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest, ""},
		{"Transition endpoint", report.Data.ID.String() + "/submit", http.StatusNoContent, "OPTIONS, POST"},
		{"Transition of missing report", uuid.New().String() + "/approve", http.StatusNotFound, ""},
		{"Notes endpoint", report.Data.ID.String() + "/notes", http.StatusNoContent, "OPTIONS, GET, POST"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodOptions, fmt.Sprintf("http://example.com/v1/reports/%s", tt.path), "")
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.allow != "" {
				assert.Equal(t, tt.allow, r.Header().Get("allow"))
			}
		})
	}
}

// TestReportsGetSingle verifies that requests for the resource endpoints are
// handled correctly.
func (suite *TestSuiteStandard) TestReportsGetSingle() {
	report := createTestReport(suite.T(), v1.ReportEditable{})

	tests := []struct {
		name   string
		id     string
		status int
		method string
	}{
		{"GET Existing Report", report.Data.ID.String(), http.StatusOK, http.MethodGet},
		{"GET ID nil", uuid.Nil.String(), http.StatusNotFound, http.MethodGet},
		{"GET No Report with this ID", uuid.New().String(), http.StatusNotFound, http.MethodGet},
		{"GET Invalid ID (string)", "notaUUID", http.StatusBadRequest, http.MethodGet},
		{"PATCH Invalid ID (string)", "notaUUID", http.StatusBadRequest, http.MethodPatch},
		{"DELETE Invalid ID (string)", "notaUUID", http.StatusBadRequest, http.MethodDelete},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, tt.method, fmt.Sprintf("http://example.com/v1/reports/%s", tt.id), "", test.Admin(t))

			var report v1.ReportResponse
			test.DecodeResponse(t, &r, &report)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// TestReportsCreate verifies that the derived values are part of the
// response.
func (suite *TestSuiteStandard) TestReportsCreate() {
	report := createTestReport(suite.T(), v1.ReportEditable{
		Year:  2026,
		Month: 7,
		ReportAmounts: models.ReportAmounts{
			Tithes:           decimal.NewFromInt(1000000),
			Offerings:        decimal.NewFromInt(500000),
			MissionsOffering: decimal.NewFromInt(200000),
			Electricity:      decimal.NewFromInt(150000),
		},
	})

	assert.Equal(suite.T(), models.ReportStatePending, report.Data.State)
	assert.Equal(suite.T(), 1, report.Data.Version)
	assert.Nil(suite.T(), report.Data.ProcessedAt)

	assert.True(suite.T(), report.Data.TotalIncome.Equal(decimal.NewFromInt(1500000)), "totalIncome is %s", report.Data.TotalIncome)
	assert.True(suite.T(), report.Data.NationalFund.Equal(decimal.NewFromInt(150000)), "nationalFund is %s", report.Data.NationalFund)
	assert.True(suite.T(), report.Data.TotalNationalFund.Equal(decimal.NewFromInt(350000)), "totalNationalFund is %s", report.Data.TotalNationalFund)
	assert.True(suite.T(), report.Data.TotalExpenses.Equal(decimal.NewFromInt(150000)), "totalExpenses is %s", report.Data.TotalExpenses)
	assert.True(suite.T(), report.Data.ClosingBalance.Equal(decimal.NewFromInt(1200000)), "closingBalance is %s", report.Data.ClosingBalance)
}

func (suite *TestSuiteStandard) TestReportsCreateFails() {
	church := createTestChurch(suite.T(), v1.ChurchEditable{})
	_ = createTestReport(suite.T(), v1.ReportEditable{ChurchID: church.Data.ID, Year: 2026, Month: 3})

	inactive := createTestChurch(suite.T(), v1.ChurchEditable{})
	r := test.Request(suite.T(), http.MethodDelete, inactive.Data.Links.Self, "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	tests := []struct {
		name     string
		body     any
		status   int                                           // expected HTTP status
		testFunc func(t *testing.T, r v1.ReportCreateResponse) // tests to perform against the response
	}{
		{
			"Broken Body", `[{ "year": "twenty" }]`, http.StatusBadRequest, nil,
		},
		{
			"No body", "", http.StatusBadRequest,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Equal(t, "the request body must not be empty", *r.Error)
			},
		},
		{
			"Non-existing church",
			[]v1.ReportEditable{{ChurchID: uuid.New(), Year: 2026, Month: 1}},
			http.StatusNotFound,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Equal(t, "there is no church matching your query", *r.Data[0].Error)
			},
		},
		{
			"Inactive church",
			[]v1.ReportEditable{{ChurchID: inactive.Data.ID, Year: 2026, Month: 1}},
			http.StatusBadRequest,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Equal(t, models.ErrChurchInactive.Error(), *r.Data[0].Error)
			},
		},
		{
			"Duplicate period",
			[]v1.ReportEditable{{ChurchID: church.Data.ID, Year: 2026, Month: 3}},
			http.StatusConflict,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Equal(t, models.ErrReportExists.Error(), *r.Data[0].Error)
			},
		},
		{
			"Invalid month",
			[]v1.ReportEditable{{ChurchID: church.Data.ID, Year: 2026, Month: 13}},
			http.StatusBadRequest,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Equal(t, models.ErrPeriodInvalid.Error(), *r.Data[0].Error)
			},
		},
		{
			"Negative amount",
			[]v1.ReportEditable{{
				ChurchID: church.Data.ID,
				Year:     2026,
				Month:    4,
				ReportAmounts: models.ReportAmounts{
					Offerings: decimal.NewFromInt(-1),
				},
			}},
			http.StatusBadRequest,
			func(t *testing.T, r v1.ReportCreateResponse) {
				assert.Contains(t, *r.Data[0].Error, models.ErrAmountNegative.Error())
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/reports", tt.body, test.Admin(t))
			test.AssertHTTPStatus(t, &r, tt.status)

			var response v1.ReportCreateResponse
			test.DecodeResponse(t, &r, &response)

			if tt.testFunc != nil {
				tt.testFunc(t, response)
			}
		})
	}
}

// TestReportsCarryForward verifies that the opening balance chains from the
// previous period once one exists.
func (suite *TestSuiteStandard) TestReportsCarryForward() {
	church := createTestChurch(suite.T(), v1.ChurchEditable{})

	january := createTestReport(suite.T(), v1.ReportEditable{
		ChurchID: church.Data.ID,
		Year:     2026,
		Month:    1,
		ReportAmounts: models.ReportAmounts{
			Tithes: decimal.NewFromInt(500000),
		},
		CarryForward: decimal.NewFromInt(100000),
	})

	// First report of the church, the carry forward from the request counts
	assert.True(suite.T(), january.Data.CarryForward.Equal(decimal.NewFromInt(100000)), "carryForward is %s", january.Data.CarryForward)
	assert.True(suite.T(), january.Data.ClosingBalance.Equal(decimal.NewFromInt(550000)), "closingBalance is %s", january.Data.ClosingBalance)

	february := createTestReport(suite.T(), v1.ReportEditable{
		ChurchID: church.Data.ID,
		Year:     2026,
		Month:    2,
		ReportAmounts: models.ReportAmounts{
			Tithes: decimal.NewFromInt(300000),
		},
		// Lies about the opening balance, the previous closing balance wins
		CarryForward: decimal.NewFromInt(999999),
	})

	assert.True(suite.T(), february.Data.CarryForward.Equal(january.Data.ClosingBalance), "carryForward is %s, want %s", february.Data.CarryForward, january.Data.ClosingBalance)
}

func (suite *TestSuiteStandard) TestReportsGetFilter() {
	c1 := createTestChurch(suite.T(), v1.ChurchEditable{})
	c2 := createTestChurch(suite.T(), v1.ChurchEditable{})

	_ = createTestReport(suite.T(), v1.ReportEditable{ChurchID: c1.Data.ID, Year: 2026, Month: 6})
	_ = createTestReport(suite.T(), v1.ReportEditable{ChurchID: c1.Data.ID, Year: 2026, Month: 7})
	_ = createTestReport(suite.T(), v1.ReportEditable{ChurchID: c2.Data.ID, Year: 2025, Month: 7})

	submitted := createTestReport(suite.T(), v1.ReportEditable{ChurchID: c2.Data.ID, Year: 2026, Month: 7})
	transitionTestReport(suite.T(), submitted, "submit", submitted.Data.Version)

	tests := []struct {
		name   string
		query  string
		len    int
		status int
	}{
		{"Church 1", fmt.Sprintf("church=%s", c1.Data.ID), 2, http.StatusOK},
		{"Church not existing", "church=c9e4ee7a-e702-4f92-b168-11a95b22c7aa", 0, http.StatusOK},
		{"Year", "year=2026", 3, http.StatusOK},
		{"Year and month", "year=2026&month=7", 2, http.StatusOK},
		{"Month", "month=7", 3, http.StatusOK},
		{"State pending", "state=pendiente", 3, http.StatusOK},
		{"State in review", "state=en_revision", 1, http.StatusOK},
		{"State unknown", "state=waiting", 0, http.StatusBadRequest},
		{"Limit 2", "limit=2", 2, http.StatusOK},
		{"Offset 3", "offset=3", 1, http.StatusOK},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			var re v1.ReportListResponse
			r := test.Request(t, http.MethodGet, fmt.Sprintf("/v1/reports?%s", tt.query), "", test.Admin(t))
			test.AssertHTTPStatus(t, &r, tt.status)
			test.DecodeResponse(t, &r, &re)

			if tt.status == http.StatusOK {
				assert.Equal(t, tt.len, len(re.Data), "Request ID: %s", r.Result().Header.Get("x-request-id"))
			}
		})
	}
}

// TestReportsGetSorted verifies that the newest period comes first.
func (suite *TestSuiteStandard) TestReportsGetSorted() {
	church := createTestChurch(suite.T(), v1.ChurchEditable{})

	march := createTestReport(suite.T(), v1.ReportEditable{ChurchID: church.Data.ID, Year: 2026, Month: 3})
	december := createTestReport(suite.T(), v1.ReportEditable{ChurchID: church.Data.ID, Year: 2025, Month: 12})
	july := createTestReport(suite.T(), v1.ReportEditable{ChurchID: church.Data.ID, Year: 2026, Month: 7})

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/reports", "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reports v1.ReportListResponse
	test.DecodeResponse(suite.T(), &r, &reports)

	require.Len(suite.T(), reports.Data, 3, "Report list has wrong length")

	assert.Equal(suite.T(), july.Data.ID, reports.Data[0].ID)
	assert.Equal(suite.T(), march.Data.ID, reports.Data[1].ID)
	assert.Equal(suite.T(), december.Data.ID, reports.Data[2].ID)
}

// Verify that updating reports works as desired
func (suite *TestSuiteStandard) TestReportsUpdate() {
	report := createTestReport(suite.T(), v1.ReportEditable{
		ReportAmounts: models.ReportAmounts{
			Tithes:    decimal.NewFromInt(1000000),
			Offerings: decimal.NewFromInt(500000),
		},
	})

	r := test.Request(suite.T(), http.MethodPatch, report.Data.Links.Self, map[string]any{
		"tithes":  "1200000",
		"version": report.Data.Version,
	}, test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.ReportResponse
	test.DecodeResponse(suite.T(), &r, &updated)

	assert.Equal(suite.T(), 2, updated.Data.Version)
	assert.True(suite.T(), updated.Data.Tithes.Equal(decimal.NewFromInt(1200000)), "tithes is %s", updated.Data.Tithes)

	// Amounts not part of the request keep their value, totals follow
	assert.True(suite.T(), updated.Data.Offerings.Equal(decimal.NewFromInt(500000)), "offerings is %s", updated.Data.Offerings)
	assert.True(suite.T(), updated.Data.TotalIncome.Equal(decimal.NewFromInt(1700000)), "totalIncome is %s", updated.Data.TotalIncome)
	assert.True(suite.T(), updated.Data.NationalFund.Equal(decimal.NewFromInt(170000)), "nationalFund is %s", updated.Data.NationalFund)
}

func (suite *TestSuiteStandard) TestReportsUpdateFails() {
	report := createTestReport(suite.T(), v1.ReportEditable{})

	rejected := createTestReport(suite.T(), v1.ReportEditable{Month: 2})
	rejected = transitionTestReport(suite.T(), rejected, "submit", rejected.Data.Version)
	rejected = transitionTestReport(suite.T(), rejected, "reject", rejected.Data.Version)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		error  string
	}{
		{"Missing version", report.Data.Links.Self, map[string]any{"tithes": "100"}, http.StatusBadRequest, "the version the change is based on must be set"},
		{"Stale version", report.Data.Links.Self, map[string]any{"tithes": "100", "version": 999}, http.StatusConflict, models.ErrReportVersionStale.Error()},
		{"Church change", report.Data.Links.Self, map[string]any{"churchId": uuid.New().String(), "version": 1}, http.StatusBadRequest, "the church and period of a report can not be changed"},
		{"Period change", report.Data.Links.Self, map[string]any{"month": 12, "version": 1}, http.StatusBadRequest, "the church and period of a report can not be changed"},
		{"Rejected is frozen", rejected.Data.Links.Self, map[string]any{"tithes": "100", "version": 3}, http.StatusConflict, ""},
		{"Broken JSON", report.Data.Links.Self, `{ "version": `, http.StatusBadRequest, ""},
		{"Non-existing report", fmt.Sprintf("http://example.com/v1/reports/%s", uuid.New()), map[string]any{"version": 1}, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPatch, tt.path, tt.body, test.Admin(t))
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.error != "" {
				var response v1.ReportResponse
				test.DecodeResponse(t, &r, &response)
				assert.Equal(t, tt.error, *response.Error)
			}
		})
	}
}

// TestReportsLifecycle walks one report from creation to the fund postings.
func (suite *TestSuiteStandard) TestReportsLifecycle() {
	church := createTestChurch(suite.T(), v1.ChurchEditable{Name: "IPU Asunción Central"})

	report := createTestReport(suite.T(), v1.ReportEditable{
		ChurchID: church.Data.ID,
		Year:     2026,
		Month:    7,
		ReportAmounts: models.ReportAmounts{
			Tithes:           decimal.NewFromInt(1000000),
			Offerings:        decimal.NewFromInt(500000),
			MissionsOffering: decimal.NewFromInt(200000),
		},
	})

	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateInReview, report.Data.State)
	assert.Equal(suite.T(), 2, report.Data.Version)

	report = transitionTestReport(suite.T(), report, "approve", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateApproved, report.Data.State)

	report = transitionTestReport(suite.T(), report, "process", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateProcessed, report.Data.State)
	require.NotNil(suite.T(), report.Data.ProcessedAt)

	// The national shares are now in the ledger
	r := test.Request(suite.T(), http.MethodGet, report.Data.Links.Movements, "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var movements v1.MovementListResponse
	test.DecodeResponse(suite.T(), &r, &movements)
	require.Len(suite.T(), movements.Data, 2)

	amounts := make([]string, 0)
	for _, movement := range movements.Data {
		assert.Equal(suite.T(), models.MovementIncoming, movement.Type)
		require.NotNil(suite.T(), movement.ReportID)
		assert.Equal(suite.T(), report.Data.ID, *movement.ReportID)
		assert.Contains(suite.T(), movement.Concept, "IPU Asunción Central")
		assert.Contains(suite.T(), movement.Concept, "2026-07")

		amounts = append(amounts, movement.Amount.String())
	}
	assert.ElementsMatch(suite.T(), []string{"150000", "200000"}, amounts)

	// The funds were created on the fly and carry the posted amounts
	var funds v1.FundListResponse
	r = test.Request(suite.T(), http.MethodGet, "http://example.com/v1/funds?name=Fondo Nacional", "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &funds)
	require.Len(suite.T(), funds.Data, 1)

	var balance v1.FundBalanceResponse
	r = test.Request(suite.T(), http.MethodGet, funds.Data[0].Links.Balance, "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &balance)
	assert.True(suite.T(), balance.Data.Balance.Equal(decimal.NewFromInt(150000)), "balance is %s", balance.Data.Balance)
}

// TestReportsProcessTwice verifies that retrying the processing call posts
// nothing new.
func (suite *TestSuiteStandard) TestReportsProcessTwice() {
	report := createTestReport(suite.T(), v1.ReportEditable{
		ReportAmounts: models.ReportAmounts{
			Tithes: decimal.NewFromInt(100000),
		},
	})

	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	report = transitionTestReport(suite.T(), report, "approve", report.Data.Version)
	report = transitionTestReport(suite.T(), report, "process", report.Data.Version)

	// Processing an already processed report is a no-op
	report = transitionTestReport(suite.T(), report, "process", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateProcessed, report.Data.State)

	r := test.Request(suite.T(), http.MethodGet, report.Data.Links.Movements, "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var movements v1.MovementListResponse
	test.DecodeResponse(suite.T(), &r, &movements)
	assert.Len(suite.T(), movements.Data, 1)
}

func (suite *TestSuiteStandard) TestReportsTransitionFails() {
	pending := createTestReport(suite.T(), v1.ReportEditable{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"Approve skips review", pending.Data.Links.Self + "/approve", v1.ReportTransitionRequest{Version: 1}, http.StatusConflict},
		{"Reject skips review", pending.Data.Links.Self + "/reject", v1.ReportTransitionRequest{Version: 1}, http.StatusConflict},
		{"Correction skips review", pending.Data.Links.Self + "/request-correction", v1.ReportTransitionRequest{Version: 1}, http.StatusConflict},
		{"Reopen needs rejected", pending.Data.Links.Self + "/reopen", v1.ReportTransitionRequest{Version: 1}, http.StatusConflict},
		{"Process needs approval", pending.Data.Links.Self + "/process", v1.ReportTransitionRequest{Version: 1}, http.StatusConflict},
		{"Missing version", pending.Data.Links.Self + "/submit", map[string]any{}, http.StatusBadRequest},
		{"Stale version", pending.Data.Links.Self + "/submit", v1.ReportTransitionRequest{Version: 999}, http.StatusConflict},
		{"Non-existing report", fmt.Sprintf("http://example.com/v1/reports/%s/submit", uuid.New()), v1.ReportTransitionRequest{Version: 1}, http.StatusNotFound},
		{"Invalid ID", "http://example.com/v1/reports/notaUUID/submit", v1.ReportTransitionRequest{Version: 1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, tt.path, tt.body, test.Admin(t))
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// TestReportsCorrectionFlow verifies that a corrected report passes review
// from the start again.
func (suite *TestSuiteStandard) TestReportsCorrectionFlow() {
	report := createTestReport(suite.T(), v1.ReportEditable{})

	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	report = transitionTestReport(suite.T(), report, "request-correction", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateCorrection, report.Data.State)

	// Resubmission returns the report to pending, not directly to review
	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStatePending, report.Data.State)

	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateInReview, report.Data.State)
}

func (suite *TestSuiteStandard) TestReportsRejectReopen() {
	report := createTestReport(suite.T(), v1.ReportEditable{})

	report = transitionTestReport(suite.T(), report, "submit", report.Data.Version)
	report = transitionTestReport(suite.T(), report, "reject", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStateRejected, report.Data.State)

	report = transitionTestReport(suite.T(), report, "reopen", report.Data.Version)
	assert.Equal(suite.T(), models.ReportStatePending, report.Data.State)
}

// TestReportsDelete verifies that only reports before approval can be
// deleted.
func (suite *TestSuiteStandard) TestReportsDelete() {
	tests := []struct {
		name   string
		status int                                    // expected response status
		setup  func(t *testing.T) v1.ReportResponse   // returns the report to delete
	}{
		{
			"Pending", http.StatusNoContent,
			func(t *testing.T) v1.ReportResponse {
				return createTestReport(t, v1.ReportEditable{})
			},
		},
		{
			"Rejected", http.StatusNoContent,
			func(t *testing.T) v1.ReportResponse {
				r := createTestReport(t, v1.ReportEditable{})
				r = transitionTestReport(t, r, "submit", r.Data.Version)
				return transitionTestReport(t, r, "reject", r.Data.Version)
			},
		},
		{
			"In review", http.StatusConflict,
			func(t *testing.T) v1.ReportResponse {
				r := createTestReport(t, v1.ReportEditable{})
				return transitionTestReport(t, r, "submit", r.Data.Version)
			},
		},
		{
			"Approved", http.StatusConflict,
			func(t *testing.T) v1.ReportResponse {
				r := createTestReport(t, v1.ReportEditable{})
				r = transitionTestReport(t, r, "submit", r.Data.Version)
				return transitionTestReport(t, r, "approve", r.Data.Version)
			},
		},
		{
			"Processed", http.StatusConflict,
			func(t *testing.T) v1.ReportResponse {
				r := createTestReport(t, v1.ReportEditable{})
				r = transitionTestReport(t, r, "submit", r.Data.Version)
				r = transitionTestReport(t, r, "approve", r.Data.Version)
				return transitionTestReport(t, r, "process", r.Data.Version)
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			report := tt.setup(t)

			r := test.Request(t, http.MethodDelete, report.Data.Links.Self, "", test.Admin(t))
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// TestReportsOverwrite verifies replacing the amounts of an existing period
// in place.
func (suite *TestSuiteStandard) TestReportsOverwrite() {
	church := createTestChurch(suite.T(), v1.ChurchEditable{})

	report := createTestReport(suite.T(), v1.ReportEditable{
		ChurchID: church.Data.ID,
		Year:     2026,
		Month:    1,
		ReportAmounts: models.ReportAmounts{
			Tithes: decimal.NewFromInt(500000),
		},
		CarryForward: decimal.NewFromInt(100000),
	})

	body := []v1.ReportEditable{{
		ChurchID: church.Data.ID,
		Year:     2026,
		Month:    1,
		ReportAmounts: models.ReportAmounts{
			Tithes: decimal.NewFromInt(800000),
		},
		// The stored opening balance chains from the previous period and wins
		CarryForward: decimal.NewFromInt(999999),
	}}

	suite.T().Run("Without overwrite the period conflicts", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports", body, test.Admin(t))
		test.AssertHTTPStatus(t, &r, http.StatusConflict)
	})

	suite.T().Run("Overwrite replaces the amounts", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports?overwrite=true", body, test.Admin(t))
		test.AssertHTTPStatus(t, &r, http.StatusCreated)

		var response v1.ReportCreateResponse
		test.DecodeResponse(t, &r, &response)
		require.Len(t, response.Data, 1)

		data := response.Data[0].Data
		assert.Equal(t, report.Data.ID, data.ID)
		assert.Equal(t, 2, data.Version)
		assert.True(t, data.Tithes.Equal(decimal.NewFromInt(800000)), "tithes is %s", data.Tithes)
		assert.True(t, data.CarryForward.Equal(decimal.NewFromInt(100000)), "carryForward is %s", data.CarryForward)
	})

	suite.T().Run("Processed reports can not be overwritten", func(t *testing.T) {
		processed := createTestReport(t, v1.ReportEditable{ChurchID: church.Data.ID, Year: 2026, Month: 2})
		processed = transitionTestReport(t, processed, "submit", processed.Data.Version)
		processed = transitionTestReport(t, processed, "approve", processed.Data.Version)
		_ = transitionTestReport(t, processed, "process", processed.Data.Version)

		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports?overwrite=true", []v1.ReportEditable{{
			ChurchID: church.Data.ID,
			Year:     2026,
			Month:    2,
		}}, test.Admin(t))
		test.AssertHTTPStatus(t, &r, http.StatusConflict)

		var response v1.ReportCreateResponse
		test.DecodeResponse(t, &r, &response)
		assert.Equal(t, models.ErrReportProcessed.Error(), *response.Data[0].Error)
	})
}

// TestReportsOwnScope verifies the pastor side of the report lifecycle.
func (suite *TestSuiteStandard) TestReportsOwnScope() {
	own := createTestChurch(suite.T(), v1.ChurchEditable{})
	other := createTestChurch(suite.T(), v1.ChurchEditable{})
	otherReport := createTestReport(suite.T(), v1.ReportEditable{ChurchID: other.Data.ID})

	headers := test.Pastor(suite.T(), own.Data.ID)

	suite.T().Run("Create for own church", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports", []v1.ReportEditable{{
			ChurchID: own.Data.ID,
			Year:     2026,
			Month:    1,
		}}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusCreated)
	})

	suite.T().Run("Create for another church is forbidden", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports", []v1.ReportEditable{{
			ChurchID: other.Data.ID,
			Year:     2026,
			Month:    2,
		}}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusForbidden)
	})

	suite.T().Run("List is narrowed to the own church", func(t *testing.T) {
		r := test.Request(t, http.MethodGet, "http://example.com/v1/reports", "", headers)
		test.AssertHTTPStatus(t, &r, http.StatusOK)

		var response v1.ReportListResponse
		test.DecodeResponse(t, &r, &response)

		require.Len(t, response.Data, 1)
		assert.Equal(t, own.Data.ID, response.Data[0].ChurchID)
	})

	suite.T().Run("Reading another church's report is forbidden", func(t *testing.T) {
		r := test.Request(t, http.MethodGet, otherReport.Data.Links.Self, "", headers)
		test.AssertHTTPStatus(t, &r, http.StatusForbidden)
	})

	suite.T().Run("Submitting the own report works, approval does not", func(t *testing.T) {
		var reports v1.ReportListResponse
		r := test.Request(t, http.MethodGet, "http://example.com/v1/reports", "", headers)
		test.DecodeResponse(t, &r, &reports)
		require.Len(t, reports.Data, 1)

		report := reports.Data[0]

		r = test.Request(t, http.MethodPost, report.Links.Self+"/submit", v1.ReportTransitionRequest{Version: report.Version}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusOK)

		r = test.Request(t, http.MethodPost, report.Links.Self+"/approve", v1.ReportTransitionRequest{Version: report.Version + 1}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusForbidden)
	})
}

// TestReportsTreasurerReview verifies that treasurers review but never file
// reports.
func (suite *TestSuiteStandard) TestReportsTreasurerReview() {
	report := createTestReport(suite.T(), v1.ReportEditable{})
	headers := test.Treasurer(suite.T())

	suite.T().Run("Creation is forbidden", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/reports", []v1.ReportEditable{{
			ChurchID: report.Data.ChurchID,
			Year:     2027,
			Month:    1,
		}}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusForbidden)
	})

	suite.T().Run("Review works", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, report.Data.Links.Self+"/submit", v1.ReportTransitionRequest{Version: report.Data.Version}, test.Admin(t))
		test.AssertHTTPStatus(t, &r, http.StatusOK)

		r = test.Request(t, http.MethodPost, report.Data.Links.Self+"/approve", v1.ReportTransitionRequest{Version: report.Data.Version + 1}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusOK)

		r = test.Request(t, http.MethodPost, report.Data.Links.Self+"/process", v1.ReportTransitionRequest{Version: report.Data.Version + 2}, headers)
		test.AssertHTTPStatus(t, &r, http.StatusOK)
	})
}
