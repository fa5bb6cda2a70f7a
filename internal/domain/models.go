package domain

import "time"

type Animal struct {
	ID           string     `json:"animal_id"`
	Name         string     `json:"name"`
	Species      string     `json:"species"`
	Breed        string     `json:"breed,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	ArrivalDate  *time.Time `json:"arrival_date,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Habitat      string     `json:"habitat,omitempty"`
	DietType     string     `json:"diet_type,omitempty"`
	MedicalNotes string     `json:"medical_notes,omitempty"`
	Status       string     `json:"status"`
	KeeperID     string     `json:"keeper_id,omitempty"`
	KeeperName   string     `json:"keeper_name,omitempty"`
}

type AnimalCreateRequest struct {
	Name         string `json:"name"`
	Species      string `json:"species"`
	Breed        string `json:"breed"`
	DateOfBirth  string `json:"date_of_birth"`
	ArrivalDate  string `json:"arrival_date"`
	Gender       string `json:"gender"`
	Habitat      string `json:"habitat"`
	DietType     string `json:"diet_type"`
	MedicalNotes string `json:"medical_notes"`
	KeeperID     string `json:"keeper_id"`
}

type AnimalUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Species      *string `json:"species,omitempty"`
	Breed        *string `json:"breed,omitempty"`
	Habitat      *string `json:"habitat,omitempty"`
	DietType     *string `json:"diet_type,omitempty"`
	MedicalNotes *string `json:"medical_notes,omitempty"`
	Status       *string `json:"status,omitempty"`
	KeeperID     *string `json:"keeper_id,omitempty"`
}

type Employee struct {
	ID          string    `json:"employee_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	HireDate    time.Time `json:"hire_date"`
	JobTitle    string    `json:"job_title"`
	Department  string    `json:"department"`
	SalaryCents int64     `json:"salary_cents"`
}

type EmployeeCreateRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	HireDate    string `json:"hire_date"`
	JobTitle    string `json:"job_title"`
	Department  string `json:"department"`
	SalaryCents int64  `json:"salary_cents"`
}

type Customer struct {
	ID               string    `json:"customer_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	City             string    `json:"city,omitempty"`
	State            string    `json:"state,omitempty"`
	ZipCode          string    `json:"zip_code,omitempty"`
	MembershipType   string    `json:"membership_type"`
	RegistrationDate time.Time `json:"registration_date"`
}

type CustomerCreateRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        string `json:"zip_code"`
	MembershipType string `json:"membership_type"`
}

type Ticket struct {
	ID            string    `json:"ticket_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name,omitempty"`
	VisitDate     time.Time `json:"visit_date"`
	TicketType    string    `json:"ticket_type"`
	PriceCents    int64     `json:"price_cents"`
	PaymentMethod string    `json:"payment_method"`
	PurchaseDate  time.Time `json:"purchase_date"`
}

type TicketBookRequest struct {
	CustomerID    string `json:"customer_id"`
	VisitDate     string `json:"visit_date"`
	TicketType    string `json:"ticket_type"`
	PriceCents    int64  `json:"price_cents"`
	PaymentMethod string `json:"payment_method"`
}

// Shop channels. Gift-shop and cafe sales share one pipeline and are told
// apart by the channel; revenue reports still aggregate them separately.
const (
	ShopGiftShop = "gift_shop"
	ShopCafe     = "cafe"
)

type RetailItem struct {
	ID              string `json:"item_id"`
	Shop            string `json:"shop"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	QuantityInStock int    `json:"quantity_in_stock"`
}

type Sale struct {
	ID               string    `json:"sale_id"`
	Shop             string    `json:"shop"`
	CustomerID       string    `json:"customer_id,omitempty"`
	ItemID           string    `json:"item_id"`
	Quantity         int       `json:"quantity"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	PaymentMethod    string    `json:"payment_method"`
	EmployeeID       string    `json:"employee_id"`
	SaleDate         time.Time `json:"sale_date"`
}

type SaleRequest struct {
	Shop             string `json:"shop"`
	CustomerID       string `json:"customer_id"`
	ItemID           string `json:"item_id"`
	Quantity         int    `json:"quantity"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	PaymentMethod    string `json:"payment_method"`
	EmployeeID       string `json:"employee_id"`
}

type SaleResponse struct {
	SaleID string `json:"sale_id"`
}

// RevenueReport sums the three independent revenue sources over one
// calendar window. A nil sum means no matching rows, which is distinct
// from a zero-priced sale summing to 0.
type RevenueReport struct {
	TicketRevenueCents   *int64 `json:"ticket_revenue_cents"`
	GiftShopRevenueCents *int64 `json:"gift_shop_revenue_cents"`
	FoodRevenueCents     *int64 `json:"food_revenue_cents"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username   string
	Password   string
	Role       string
	EmployeeID string
	Active     bool
	CreatedAt  time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	AnimalStatusActive      = "active"
	AnimalStatusQuarantined = "quarantined"
	AnimalStatusTransferred = "transferred"
	AnimalStatusDeceased    = "deceased"
)
