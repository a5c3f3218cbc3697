package routes

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sidhant-sriv/homie-api/models"
	"github.com/xuri/excelize/v2"
)

func TestOccupancyRate(t *testing.T) {
	cases := []struct {
		rented, total int64
		want          int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := occupancyRate(tc.rented, tc.total); got != tc.want {
			t.Errorf("occupancyRate(%d, %d) = %d, want %d", tc.rented, tc.total, got, tc.want)
		}
	}
}

func TestMonthlyIncome(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatal(err)
		}
		return ts
	}
	got := monthlyIncome([]models.Transaction{
		{Amount: 1000, CreatedAt: at("2025-01-05T10:00:00Z")},
		{Amount: 250, CreatedAt: at("2025-03-01T00:00:00Z")},
		{Amount: 1000, CreatedAt: at("2025-01-31T23:59:59Z")},
		// Still February in UTC.
		{Amount: 500, CreatedAt: at("2025-03-01T01:00:00+02:00")},
	})
	want := []MonthlyIncome{
		{Month: "2025-03", Amount: 250, Transactions: 1},
		{Month: "2025-02", Amount: 500, Transactions: 1},
		{Month: "2025-01", Amount: 2000, Transactions: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if got := monthlyIncome(nil); len(got) != 0 {
		t.Errorf("empty input produced %+v", got)
	}
}

// seedTransactions stores n rent payments from tenant to landlord, one day apart
// going back from start.
func (s *testServer) seedTransactions(propertyID, tenantID, landlordID uint, n int, amount float64, start time.Time) {
	s.t.Helper()
	for i := 0; i < n; i++ {
		at := start.AddDate(0, 0, -i)
		txn := models.Transaction{
			PropertyID: propertyID,
			TenantID:   tenantID,
			LandlordID: landlordID,
			Amount:     amount,
			Type:       models.TransactionRent,
			Status:     models.TransactionCompleted,
			Date:       at,
			CreatedAt:  at,
		}
		if err := s.db.Create(&txn).Error; err != nil {
			s.t.Fatalf("seed transaction: %v", err)
		}
	}
}

func TestLandlordDashboard(t *testing.T) {
	s := newTestServer(t)
	landlord, landlordToken := s.user(models.RoleLandlord, "landlord@homie.test")
	tenant, tenantToken := s.user(models.RoleTenant, "tenant@homie.test")

	rented := s.createProperty(landlordToken, map[string]string{"title": "Rented"}, 1)
	s.createProperty(landlordToken, map[string]string{"title": "Open"}, 1)
	s.createProperty(landlordToken, map[string]string{"title": "Also open"}, 1)
	s.apply(tenantToken, rented.ID)
	s.db.Model(&models.Property{}).Where("id = ?", rented.ID).Update("status", models.PropertyRented)

	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	s.seedTransactions(rented.ID, tenant.ID, landlord.ID, 12, 100, start)

	w := s.do(http.MethodGet, "/api/dashboard/landlord/stats", landlordToken, nil)
	expectStatus(t, w, http.StatusOK)
	stats := decode[LandlordStats](t, w)
	want := LandlordStats{
		TotalProperties:     3,
		ActiveListings:      2,
		TotalIncome:         1200,
		OccupancyRate:       33,
		TotalApplications:   1,
		PendingApplications: 1,
	}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	w = s.do(http.MethodGet, "/api/dashboard/landlord/income", landlordToken, nil)
	expectStatus(t, w, http.StatusOK)
	income := decode[struct {
		Monthly      []MonthlyIncome      `json:"monthly"`
		Transactions []models.Transaction `json:"transactions"`
	}](t, w)
	if len(income.Transactions) != recentTransactions {
		t.Fatalf("recent transactions = %d, want %d", len(income.Transactions), recentTransactions)
	}
	if !income.Transactions[0].CreatedAt.Equal(start) {
		t.Errorf("newest transaction at %v, want %v", income.Transactions[0].CreatedAt, start)
	}
	if income.Transactions[0].Tenant == nil || income.Transactions[0].Property == nil {
		t.Errorf("parties not populated: %+v", income.Transactions[0])
	}
	// Ten payments in March, two at the end of February.
	wantMonthly := []MonthlyIncome{
		{Month: "2025-03", Amount: 1000, Transactions: 10},
		{Month: "2025-02", Amount: 200, Transactions: 2},
	}
	if len(income.Monthly) != len(wantMonthly) {
		t.Fatalf("monthly = %+v", income.Monthly)
	}
	for i := range wantMonthly {
		if income.Monthly[i] != wantMonthly[i] {
			t.Errorf("monthly[%d] = %+v, want %+v", i, income.Monthly[i], wantMonthly[i])
		}
	}

	w = s.do(http.MethodGet, "/api/dashboard/landlord/properties", landlordToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]models.Property](t, w); len(got) != 3 {
		t.Errorf("landlord properties = %d, want 3", len(got))
	}

	w = s.do(http.MethodGet, "/api/dashboard/landlord/stats", tenantToken, nil)
	expectStatus(t, w, http.StatusForbidden)
}

func TestLandlordDashboard_Empty(t *testing.T) {
	s := newTestServer(t)
	_, landlordToken := s.user(models.RoleLandlord, "landlord@homie.test")

	w := s.do(http.MethodGet, "/api/dashboard/landlord/stats", landlordToken, nil)
	expectStatus(t, w, http.StatusOK)
	if stats := decode[LandlordStats](t, w); stats != (LandlordStats{}) {
		t.Errorf("stats = %+v, want zero values", stats)
	}

	w = s.do(http.MethodGet, "/api/dashboard/landlord/income", landlordToken, nil)
	expectStatus(t, w, http.StatusOK)
	if body := w.Body.String(); !strings.Contains(body, `"monthly":[]`) || !strings.Contains(body, `"transactions":[]`) {
		t.Errorf("income = %s, want empty arrays", body)
	}
}

func TestTenantDashboard(t *testing.T) {
	s := newTestServer(t)
	landlord, landlordToken := s.user(models.RoleLandlord, "landlord@homie.test")
	_, tenantToken := s.user(models.RoleTenant, "tenant@homie.test")

	first := s.createProperty(landlordToken, map[string]string{"title": "First"}, 1)
	second := s.createProperty(landlordToken, map[string]string{"title": "Second"}, 1)
	third := s.createProperty(landlordToken, map[string]string{"title": "Third"}, 1)
	w := s.do(http.MethodPut, "/api/properties/"+strconv.Itoa(int(third.ID)), landlordToken, obj{"status": "sold"})
	expectStatus(t, w, http.StatusOK)

	expectStatus(t, s.do(http.MethodPost, "/api/properties/"+strconv.Itoa(int(first.ID))+"/save", tenantToken, nil), http.StatusOK)
	s.apply(tenantToken, first.ID)
	s.apply(tenantToken, second.ID)

	w = s.do(http.MethodGet, "/api/dashboard/tenant/stats", tenantToken, nil)
	expectStatus(t, w, http.StatusOK)
	want := TenantStats{
		TotalProperties:     1,
		ActiveListings:      2,
		TotalApplications:   2,
		PendingApplications: 2,
	}
	if stats := decode[TenantStats](t, w); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	w = s.do(http.MethodGet, "/api/dashboard/tenant/saved-properties", tenantToken, nil)
	expectStatus(t, w, http.StatusOK)
	saved := decode[[]models.Property](t, w)
	if len(saved) != 1 || saved[0].ID != first.ID {
		t.Fatalf("saved = %+v", saved)
	}
	if saved[0].Landlord == nil || saved[0].Landlord.ID != landlord.ID {
		t.Errorf("landlord not populated: %+v", saved[0].Landlord)
	}

	w = s.do(http.MethodGet, "/api/dashboard/tenant/applications", tenantToken, nil)
	expectStatus(t, w, http.StatusOK)
	applications := decode[[]models.Application](t, w)
	if len(applications) != 2 {
		t.Fatalf("applications = %d, want 2", len(applications))
	}
	for _, a := range applications {
		if a.Property == nil || a.Property.Landlord == nil {
			t.Errorf("application %d missing property landlord", a.ID)
		}
	}

	w = s.do(http.MethodGet, "/api/dashboard/tenant/stats", landlordToken, nil)
	expectStatus(t, w, http.StatusForbidden)
}

func TestAdminDashboard(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.user(models.RoleAdmin, "admin@homie.test")
	landlord, landlordToken := s.user(models.RoleLandlord, "landlord@homie.test")
	tenant, tenantToken := s.user(models.RoleTenant, "tenant@homie.test")
	property := s.createProperty(landlordToken, map[string]string{"title": "Loft"}, 1)

	// An account from last year does not count as new this month.
	s.db.Model(&models.User{}).Where("id = ?", admin.ID).Update("created_at", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	s.seedTransactions(property.ID, tenant.ID, landlord.ID, 3, 400, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC))

	// The fixed clock sits in March 2025; real creation times must be later.
	s.now = time.Now()
	w := s.do(http.MethodGet, "/api/dashboard/admin/stats", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	want := AdminStats{
		TotalUsers:        3,
		NewUsersThisMonth: 2,
		TotalProperties:   1,
		TotalTransactions: 3,
		Revenue:           1200,
	}
	if stats := decode[AdminStats](t, w); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	w = s.do(http.MethodGet, "/api/dashboard/admin/users", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("user listing leaks credentials: %s", w.Body.String())
	}
	if got := decode[[]models.User](t, w); len(got) != 3 {
		t.Errorf("users = %d, want 3", len(got))
	}

	w = s.do(http.MethodGet, "/api/dashboard/admin/properties", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]models.Property](t, w); len(got) != 1 || got[0].Landlord == nil {
		t.Errorf("properties = %+v", got)
	}

	w = s.do(http.MethodGet, "/api/dashboard/admin/transactions", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	transactions := decode[[]models.Transaction](t, w)
	if len(transactions) != 3 || transactions[0].Landlord == nil || transactions[0].Landlord.ID != landlord.ID {
		t.Errorf("transactions = %+v", transactions)
	}

	for _, token := range []string{tenantToken, landlordToken} {
		w = s.do(http.MethodGet, "/api/dashboard/admin/stats", token, nil)
		expectStatus(t, w, http.StatusForbidden)
	}
}

func TestExportTransactions(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(models.RoleAdmin, "admin@homie.test")
	landlord, landlordToken := s.user(models.RoleLandlord, "landlord@homie.test")
	tenant, _ := s.user(models.RoleTenant, "tenant@homie.test")
	property := s.createProperty(landlordToken, map[string]string{"title": "Loft"}, 1)
	s.seedTransactions(property.ID, tenant.ID, landlord.ID, 2, 750, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC))

	w := s.do(http.MethodGet, "/api/dashboard/admin/transactions/export", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions_20250315.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != transactionsSheet {
		t.Errorf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(transactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(transactionHeaders, ",") {
		t.Errorf("header = %v", rows[0])
	}
	for col, want := range map[string]float64{"A": 12, "C": 28, "E": 28, "H": 12} {
		if got, err := f.GetColWidth(transactionsSheet, col); err != nil || got != want {
			t.Errorf("column %s width = %v (%v), want %v", col, got, err, want)
		}
	}
	row := rows[1]
	if row[1] != "2025-03-02" || row[2] != "Loft" || row[3] != tenant.Name || row[4] != landlord.Name || row[5] != "rent" || row[7] != "750" {
		t.Errorf("first row = %v", row)
	}
}
