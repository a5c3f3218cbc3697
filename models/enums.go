package models

import "fmt"

// enum is satisfied by the closed string types below. Parsing rejects any
// value outside the declared set, so an invalid status never reaches the store.
type enum interface {
	~string
	Valid() bool
}

func parseEnum[T enum](kind, s string) (T, error) {
	v := T(s)
	if !v.Valid() {
		var zero T
		return zero, Validation(fmt.Sprintf("invalid %s %q", kind, s), FieldError{Field: kind, Message: "is not an allowed value"})
	}
	return v, nil
}

type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) { return parseEnum[Role]("role", s) }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

type ListingType string

const (
	ListingRent ListingType = "rent"
	ListingSale ListingType = "sale"
)

func (l ListingType) Valid() bool { return l == ListingRent || l == ListingSale }

func ParseListingType(s string) (ListingType, error) { return parseEnum[ListingType]("listingType", s) }

func (l *ListingType) UnmarshalText(b []byte) error {
	v, err := ParseListingType(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

type PriceFrequency string

const (
	FrequencyMonthly PriceFrequency = "monthly"
	FrequencyYearly  PriceFrequency = "yearly"
)

func (f PriceFrequency) Valid() bool { return f == FrequencyMonthly || f == FrequencyYearly }

func ParsePriceFrequency(s string) (PriceFrequency, error) {
	return parseEnum[PriceFrequency]("priceFrequency", s)
}

func (f *PriceFrequency) UnmarshalText(b []byte) error {
	v, err := ParsePriceFrequency(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

type PriceType string

const (
	PriceFixed      PriceType = "fixed"
	PriceNegotiable PriceType = "negotiable"
)

func (p PriceType) Valid() bool { return p == PriceFixed || p == PriceNegotiable }

func (p *PriceType) UnmarshalText(b []byte) error {
	v, err := parseEnum[PriceType]("priceType", string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "available"
	PropertyRented    PropertyStatus = "rented"
	PropertySold      PropertyStatus = "sold"
	PropertyPending   PropertyStatus = "pending"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyAvailable, PropertyRented, PropertySold, PropertyPending:
		return true
	}
	return false
}

func ParsePropertyStatus(s string) (PropertyStatus, error) {
	return parseEnum[PropertyStatus]("status", s)
}

func (s *PropertyStatus) UnmarshalText(b []byte) error {
	v, err := ParsePropertyStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	return parseEnum[ApplicationStatus]("status", s)
}

func (s *ApplicationStatus) UnmarshalText(b []byte) error {
	v, err := ParseApplicationStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CanTransitionTo reports whether a landlord may move an application from s
// to next. Only pending applications are decided.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return s == ApplicationPending && (next == ApplicationApproved || next == ApplicationRejected)
}

type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
)

func (p MaintenancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p *MaintenancePriority) UnmarshalText(b []byte) error {
	v, err := parseEnum[MaintenancePriority]("priority", string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

var maintenanceRank = map[MaintenanceStatus]int{
	MaintenancePending:    0,
	MaintenanceInProgress: 1,
	MaintenanceCompleted:  2,
}

func (s MaintenanceStatus) Valid() bool {
	_, ok := maintenanceRank[s]
	return ok
}

func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	return parseEnum[MaintenanceStatus]("status", s)
}

func (s *MaintenanceStatus) UnmarshalText(b []byte) error {
	v, err := ParseMaintenanceStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CanTransitionTo only allows forward moves; completed is terminal.
func (s MaintenanceStatus) CanTransitionTo(next MaintenanceStatus) bool {
	return next.Valid() && maintenanceRank[next] > maintenanceRank[s]
}

type TransactionType string

const (
	TransactionRent    TransactionType = "rent"
	TransactionDeposit TransactionType = "deposit"
	TransactionFee     TransactionType = "fee"
)

func (t TransactionType) Valid() bool {
	return t == TransactionRent || t == TransactionDeposit || t == TransactionFee
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

func (t TransactionStatus) Valid() bool {
	return t == TransactionPending || t == TransactionCompleted || t == TransactionFailed
}
