package routes

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
)

const recentTransactions = 10

// DashboardRoutes sets up the role-gated read-only dashboard routes
func (h *Handler) DashboardRoutes(group *gin.RouterGroup, tenant, landlord, admin []gin.HandlerFunc) {
	// Tenant routes
	group.GET("/tenant/stats", with(tenant, middleware.WithPrincipal(h.TenantStats))...)
	group.GET("/tenant/saved-properties", with(tenant, middleware.WithPrincipal(h.TenantSavedProperties))...)
	group.GET("/tenant/applications", with(tenant, middleware.WithPrincipal(h.TenantDashboardApplications))...)
	group.GET("/tenant/notifications", with(tenant, middleware.WithPrincipal(h.ListNotifications))...)

	// Landlord routes
	group.GET("/landlord/stats", with(landlord, middleware.WithPrincipal(h.LandlordStats))...)
	group.GET("/landlord/properties", with(landlord, middleware.WithPrincipal(h.LandlordProperties))...)
	group.GET("/landlord/applications", with(landlord, middleware.WithPrincipal(h.LandlordApplications))...)
	group.GET("/landlord/income", with(landlord, middleware.WithPrincipal(h.LandlordIncome))...)

	// Admin routes
	group.GET("/admin/stats", with(admin, h.AdminStats())...)
	group.GET("/admin/users", with(admin, h.AdminUsers())...)
	group.GET("/admin/properties", with(admin, h.AdminProperties())...)
	group.GET("/admin/transactions", with(admin, h.AdminTransactions())...)
	group.GET("/admin/transactions/export", with(admin, h.ExportTransactions())...)
}

type TenantStats struct {
	TotalProperties     int64 `json:"totalProperties"`
	ActiveListings      int64 `json:"activeListings"`
	TotalApplications   int64 `json:"totalApplications"`
	PendingApplications int64 `json:"pendingApplications"`
	NewNotifications    int64 `json:"newNotifications"`
}

type LandlordStats struct {
	TotalProperties     int64   `json:"totalProperties"`
	ActiveListings      int64   `json:"activeListings"`
	TotalIncome         float64 `json:"totalIncome"`
	OccupancyRate       int     `json:"occupancyRate"`
	TotalApplications   int64   `json:"totalApplications"`
	PendingApplications int64   `json:"pendingApplications"`
}

type AdminStats struct {
	TotalUsers        int64   `json:"totalUsers"`
	NewUsersThisMonth int64   `json:"newUsersThisMonth"`
	TotalProperties   int64   `json:"totalProperties"`
	TotalTransactions int64   `json:"totalTransactions"`
	Revenue           float64 `json:"revenue"`
}

// MonthlyIncome is one year-month bucket of a landlord's transactions.
type MonthlyIncome struct {
	Month        string  `json:"month"`
	Amount       float64 `json:"amount"`
	Transactions int     `json:"transactions"`
}

// counter runs a sequence of counts, keeping the first error.
type counter struct {
	db  *gorm.DB
	err error
}

func (q *counter) count(model any, query string, args ...any) int64 {
	var n int64
	if q.err != nil {
		return 0
	}
	tx := q.db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&n).Error; err != nil {
		q.err = fmt.Errorf("count %T: %w", model, err)
	}
	return n
}

func (q *counter) sum(query string, args ...any) float64 {
	var total float64
	if q.err != nil {
		return 0
	}
	tx := q.db.Model(&models.Transaction{}).Select("COALESCE(SUM(amount), 0)")
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Scan(&total).Error; err != nil {
		q.err = fmt.Errorf("sum transactions: %w", err)
	}
	return total
}

// occupancyRate is the rounded share of rented properties, 0 without properties.
func occupancyRate(rented, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(rented) / float64(total) * 100))
}

// monthlyIncome buckets transactions by the UTC year-month they were
// recorded in, newest month first.
func monthlyIncome(transactions []models.Transaction) []MonthlyIncome {
	byMonth := make(map[string]*MonthlyIncome)
	for _, t := range transactions {
		key := t.CreatedAt.UTC().Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyIncome{Month: key}
			byMonth[key] = m
		}
		m.Amount += t.Amount
		m.Transactions++
	}

	out := make([]MonthlyIncome, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// TenantStats handles GET /api/dashboard/tenant/stats.
func (h *Handler) TenantStats(c *gin.Context, p middleware.Principal) {
	q := &counter{db: h.DB.WithContext(c.Request.Context())}
	stats := TenantStats{
		TotalProperties:     q.count(&models.SavedProperty{}, "user_id = ?", p.UserID),
		ActiveListings:      q.count(&models.Property{}, "status = ?", models.PropertyAvailable),
		TotalApplications:   q.count(&models.Application{}, "tenant_id = ?", p.UserID),
		PendingApplications: q.count(&models.Application{}, "tenant_id = ? AND status = ?", p.UserID, models.ApplicationPending),
		NewNotifications:    q.count(&models.Notification{}, "user_id = ? AND read = ?", p.UserID, false),
	}
	if q.err != nil {
		fail(c, q.err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TenantSavedProperties lists the caller's saved properties with landlords populated.
func (h *Handler) TenantSavedProperties(c *gin.Context, p middleware.Principal) {
	db := h.DB.WithContext(c.Request.Context())
	properties := []models.Property{}
	err := db.Preload("Landlord").
		Where("id IN (?)", db.Model(&models.SavedProperty{}).Select("property_id").Where("user_id = ?", p.UserID)).
		Order("created_at DESC").Order("id DESC").
		Find(&properties).Error
	if err != nil {
		fail(c, fmt.Errorf("list saved properties: %w", err))
		return
	}
	c.JSON(http.StatusOK, properties)
}

// TenantDashboardApplications lists the caller's applications with each
// property's landlord populated.
func (h *Handler) TenantDashboardApplications(c *gin.Context, p middleware.Principal) {
	applications := []models.Application{}
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Property.Landlord").
		Where("tenant_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Find(&applications).Error
	if err != nil {
		fail(c, fmt.Errorf("list tenant applications: %w", err))
		return
	}
	c.JSON(http.StatusOK, applications)
}

// LandlordStats handles GET /api/dashboard/landlord/stats.
func (h *Handler) LandlordStats(c *gin.Context, p middleware.Principal) {
	db := h.DB.WithContext(c.Request.Context())
	q := &counter{db: db}

	total := q.count(&models.Property{}, "landlord_id = ?", p.UserID)
	rented := q.count(&models.Property{}, "landlord_id = ? AND status = ?", p.UserID, models.PropertyRented)
	stats := LandlordStats{
		TotalProperties:     total,
		ActiveListings:      q.count(&models.Property{}, "landlord_id = ? AND status = ?", p.UserID, models.PropertyAvailable),
		TotalIncome:         q.sum("landlord_id = ?", p.UserID),
		OccupancyRate:       occupancyRate(rented, total),
		TotalApplications:   q.count(&models.Application{}, "property_id IN (?)", ownedPropertyIDs(db, p.UserID)),
		PendingApplications: q.count(&models.Application{}, "property_id IN (?) AND status = ?", ownedPropertyIDs(db, p.UserID), models.ApplicationPending),
	}
	if q.err != nil {
		fail(c, q.err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// LandlordProperties lists the caller's properties, newest first.
func (h *Handler) LandlordProperties(c *gin.Context, p middleware.Principal) {
	properties := []models.Property{}
	err := h.DB.WithContext(c.Request.Context()).
		Where("landlord_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Find(&properties).Error
	if err != nil {
		fail(c, fmt.Errorf("list landlord properties: %w", err))
		return
	}
	c.JSON(http.StatusOK, properties)
}

// LandlordIncome returns the monthly income series and the most recent
// transactions for the caller.
func (h *Handler) LandlordIncome(c *gin.Context, p middleware.Principal) {
	db := h.DB.WithContext(c.Request.Context())

	var all []models.Transaction
	if err := db.Where("landlord_id = ?", p.UserID).Find(&all).Error; err != nil {
		fail(c, fmt.Errorf("load transactions: %w", err))
		return
	}

	recent := []models.Transaction{}
	err := db.Preload("Property").Preload("Tenant").
		Where("landlord_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Limit(recentTransactions).
		Find(&recent).Error
	if err != nil {
		fail(c, fmt.Errorf("load recent transactions: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"monthly":      monthlyIncome(all),
		"transactions": recent,
	})
}

// startOfMonth returns midnight UTC on the first day of t's month.
func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AdminStats handles GET /api/dashboard/admin/stats.
func (h *Handler) AdminStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := &counter{db: h.DB.WithContext(c.Request.Context())}
		stats := AdminStats{
			TotalUsers:        q.count(&models.User{}, ""),
			NewUsersThisMonth: q.count(&models.User{}, "created_at >= ?", startOfMonth(h.now())),
			TotalProperties:   q.count(&models.Property{}, ""),
			TotalTransactions: q.count(&models.Transaction{}, ""),
			Revenue:           q.sum(""),
		}
		if q.err != nil {
			fail(c, q.err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// AdminUsers lists every user without credentials.
func (h *Handler) AdminUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users := []models.User{}
		if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
			fail(c, fmt.Errorf("list users: %w", err))
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// AdminProperties lists every property with its landlord populated.
func (h *Handler) AdminProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		properties := []models.Property{}
		err := h.DB.WithContext(c.Request.Context()).
			Preload("Landlord").
			Order("created_at DESC").Order("id DESC").
			Find(&properties).Error
		if err != nil {
			fail(c, fmt.Errorf("list properties: %w", err))
			return
		}
		c.JSON(http.StatusOK, properties)
	}
}

func (h *Handler) allTransactions(c *gin.Context) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Property").Preload("Tenant").Preload("Landlord").
		Order("created_at DESC").Order("id DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// AdminTransactions lists every transaction with its parties populated.
func (h *Handler) AdminTransactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		transactions, err := h.allTransactions(c)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
	}
}
