package partner

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Role distinguishes who a customer is to the owner
type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleSupplier Role = "SUPPLIER"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleSupplier
}

// Customer is a buyer or supplier known to an owner
type Customer struct {
	shared.OwnedAggregateRoot
	Name  string
	Email string
	Phone string
	Role  Role
}

// NewCustomer creates a customer after validating its fields
func NewCustomer(ownerID uuid.UUID, name, email, phone string, role Role) (*Customer, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Customer role must be BUYER or SUPPLIER")
	}
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
	}
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return nil, err
		}
	}

	c := &Customer{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Name:               name,
		Email:              email,
		Phone:              phone,
		Role:               role,
	}
	c.AddDomainEvent(NewCustomerCreatedEvent(c))
	return c, nil
}

// HasContact reports whether either contact field is set
func (c *Customer) HasContact() bool {
	return c.Email != "" || c.Phone != ""
}

// IsDuplicateOf applies the dedup rule against a candidate with the same
// (owner, name, role): a duplicate when neither side has contact info, or
// emails match, or phones match.
func (c *Customer) IsDuplicateOf(email, phone string) bool {
	email = NormalizeEmail(email)
	phone = NormalizePhone(phone)

	if !c.HasContact() && email == "" && phone == "" {
		return true
	}
	if email != "" && NormalizeEmail(c.Email) == email {
		return true
	}
	if phone != "" && NormalizePhone(c.Phone) == phone {
		return true
	}
	return false
}

// NormalizeEmail lower-cases and trims an email for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone strips formatting characters from a phone for comparison
func NormalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

var validPhone = regexp.MustCompile(`^[\d\s\-\(\)\+\.]+$`)

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
