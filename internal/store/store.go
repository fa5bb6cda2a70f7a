package store

import (
	"context"
	"errors"
	"time"

	"zooops/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// Revenue source names used by RevenueSourceError.
const (
	SourceTickets  = "tickets"
	SourceGiftShop = "gift_shop"
	SourceFood     = "food"
)

// RevenueSourceError reports which of the three revenue sources failed so
// callers can fail the whole report while still naming the source, without
// exposing the underlying store error text.
type RevenueSourceError struct {
	Source string
	Err    error
}

func (e *RevenueSourceError) Error() string {
	return e.Source + " revenue query failed: " + e.Err.Error()
}

func (e *RevenueSourceError) Unwrap() error { return e.Err }

// Repository is the storage-access interface the service depends on.
// CreateSale is the one multi-statement unit of work: the sale insert and
// the inventory decrement commit or roll back together.
type Repository interface {
	ListAnimals(ctx context.Context) ([]domain.Animal, error)
	GetAnimalByID(ctx context.Context, id string) (*domain.Animal, error)
	CreateAnimal(ctx context.Context, animal domain.Animal) (*domain.Animal, error)
	UpdateAnimal(ctx context.Context, animal domain.Animal) (*domain.Animal, error)
	DeleteAnimal(ctx context.Context, id string) error

	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListTickets(ctx context.Context, limit int) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error)

	ListRetailItems(ctx context.Context, shop string) ([]domain.RetailItem, error)
	GetRetailItemByID(ctx context.Context, itemID string) (*domain.RetailItem, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	DailyRevenue(ctx context.Context, day time.Time) (domain.RevenueReport, error)
	MonthlyRevenue(ctx context.Context, year int, month time.Month) (domain.RevenueReport, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
