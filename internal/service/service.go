package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"zooops/backend/internal/cache"
	"zooops/backend/internal/domain"
	"zooops/backend/internal/rbac"
	"zooops/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	saleTimeout     = 10 * time.Second
	revenueCacheTTL = 15 * time.Minute
	dateLayout      = "2006-01-02"
)

type Service struct {
	repo         store.Repository
	guard        *rbac.Table
	revenueCache cache.RevenueCache
}

func New(repo store.Repository, guard *rbac.Table, revenueCache cache.RevenueCache) *Service {
	if guard == nil {
		guard = rbac.DefaultTable()
	}
	if revenueCache == nil {
		revenueCache = cache.NoopRevenueCache{}
	}

	return &Service{
		repo:         repo,
		guard:        guard,
		revenueCache: revenueCache,
	}
}

// authorize resolves the caller's role from the request context and checks
// it against the permission table before any work runs. The denied
// permission is carried on the error for the caller to see.
func (s *Service) authorize(ctx context.Context, permission string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnauthorized, permission)
	}
	if !s.guard.Allowed(actor.Role, permission) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, permission)
	}
	return nil
}

// ProcessSale records a retail sale and decrements the item's inventory as
// one atomic unit of work. Stock is pre-checked so an oversized quantity
// fails fast with ErrInsufficientInventory before any write is attempted.
func (s *Service) ProcessSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	permission, err := salePermission(req.Shop)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if err := s.authorize(ctx, permission); err != nil {
		return domain.SaleResponse{}, err
	}

	if req.ItemID == "" || req.EmployeeID == "" || strings.TrimSpace(req.PaymentMethod) == "" {
		return domain.SaleResponse{}, ErrInvalidInput
	}
	if req.Quantity < 1 || req.TotalAmountCents < 0 {
		return domain.SaleResponse{}, ErrInvalidInput
	}

	item, err := s.repo.GetRetailItemByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleResponse{}, ErrNotFound
		}
		log.Printf("[service] sale item lookup failed item=%s: %v", req.ItemID, err)
		return domain.SaleResponse{}, ErrTransactionFailed
	}
	if item.Shop != req.Shop {
		return domain.SaleResponse{}, ErrNotFound
	}
	if item.QuantityInStock < req.Quantity {
		return domain.SaleResponse{}, ErrInsufficientInventory
	}

	saleCtx, cancel := context.WithTimeout(ctx, saleTimeout)
	defer cancel()

	sale, err := s.repo.CreateSale(saleCtx, domain.Sale{
		Shop:             req.Shop,
		CustomerID:       req.CustomerID,
		ItemID:           req.ItemID,
		Quantity:         req.Quantity,
		TotalAmountCents: req.TotalAmountCents,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		EmployeeID:       req.EmployeeID,
		SaleDate:         time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.SaleResponse{}, ErrNotFound
		case errors.Is(err, store.ErrInsufficientStock):
			// The stock moved between the pre-check and the locked
			// decrement; the transaction already rolled back.
			return domain.SaleResponse{}, ErrInsufficientInventory
		case errors.Is(err, store.ErrInvalidInput):
			return domain.SaleResponse{}, ErrInvalidInput
		default:
			log.Printf("[service] sale transaction failed item=%s qty=%d: %v", req.ItemID, req.Quantity, err)
			return domain.SaleResponse{}, ErrTransactionFailed
		}
	}

	s.logAudit(ctx, "sale_create", "sale", sale.ID,
		fmt.Sprintf("shop=%s,item=%s,qty=%d,total_cents=%d", sale.Shop, sale.ItemID, sale.Quantity, sale.TotalAmountCents))

	return domain.SaleResponse{SaleID: sale.ID}, nil
}

func salePermission(shop string) (string, error) {
	switch shop {
	case domain.ShopGiftShop:
		return "gift_shop_sales:create", nil
	case domain.ShopCafe:
		return "cafe_sales:create", nil
	default:
		return "", ErrInvalidInput
	}
}

// DailyRevenue aggregates the three revenue sources for one calendar date.
// Reads have no side effects beyond warming the cache, and a failure in
// any single source fails the whole report.
func (s *Service) DailyRevenue(ctx context.Context, date string) (domain.RevenueReport, error) {
	if err := s.authorize(ctx, "dashboard:read"); err != nil {
		return domain.RevenueReport{}, err
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return domain.RevenueReport{}, ErrInvalidInput
	}

	cacheKey := "revenue:daily:" + day.Format(dateLayout)
	windowEnd := day.AddDate(0, 0, 1)
	if report, ok := s.cachedReport(ctx, cacheKey, windowEnd); ok {
		return report, nil
	}

	report, err := s.repo.DailyRevenue(ctx, day)
	if err != nil {
		return domain.RevenueReport{}, s.aggregationError(err)
	}

	s.cacheReport(ctx, cacheKey, windowEnd, report)
	return report, nil
}

// MonthlyRevenue aggregates over a full calendar month using the store's
// calendar semantics, never a fixed day count.
func (s *Service) MonthlyRevenue(ctx context.Context, year int, month int) (domain.RevenueReport, error) {
	if err := s.authorize(ctx, "dashboard:read"); err != nil {
		return domain.RevenueReport{}, err
	}
	if year < 1 || month < 1 || month > 12 {
		return domain.RevenueReport{}, ErrInvalidInput
	}

	cacheKey := fmt.Sprintf("revenue:monthly:%04d-%02d", year, month)
	windowEnd := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	if report, ok := s.cachedReport(ctx, cacheKey, windowEnd); ok {
		return report, nil
	}

	report, err := s.repo.MonthlyRevenue(ctx, year, time.Month(month))
	if err != nil {
		return domain.RevenueReport{}, s.aggregationError(err)
	}

	s.cacheReport(ctx, cacheKey, windowEnd, report)
	return report, nil
}

func (s *Service) aggregationError(err error) error {
	var srcErr *store.RevenueSourceError
	if errors.As(err, &srcErr) {
		log.Printf("[service] revenue aggregation failed source=%s: %v", srcErr.Source, srcErr.Err)
		return fmt.Errorf("%w: %s source", ErrAggregationFailed, srcErr.Source)
	}
	log.Printf("[service] revenue aggregation failed: %v", err)
	return ErrAggregationFailed
}

// cachedReport returns a cached report only for windows that have fully
// elapsed; open windows are always recomputed so new sales show up.
func (s *Service) cachedReport(ctx context.Context, key string, windowEnd time.Time) (domain.RevenueReport, bool) {
	if time.Now().UTC().Before(windowEnd) {
		return domain.RevenueReport{}, false
	}
	report, found, err := s.revenueCache.Get(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: revenue cache get failed key=%s: %v", key, err)
		return domain.RevenueReport{}, false
	}
	if !found || report == nil {
		return domain.RevenueReport{}, false
	}
	return *report, true
}

func (s *Service) cacheReport(ctx context.Context, key string, windowEnd time.Time, report domain.RevenueReport) {
	if time.Now().UTC().Before(windowEnd) {
		return
	}
	if err := s.revenueCache.Set(ctx, key, &report, revenueCacheTTL); err != nil {
		log.Printf("[service] WARN: revenue cache set failed key=%s: %v", key, err)
	}
}

func (s *Service) ListRetailItems(ctx context.Context, shop string) ([]domain.RetailItem, error) {
	permission := "gift_shop_sales:read"
	if shop == domain.ShopCafe {
		permission = "cafe_sales:read"
	}
	if shop != "" && shop != domain.ShopGiftShop && shop != domain.ShopCafe {
		return nil, ErrInvalidInput
	}
	if err := s.authorize(ctx, permission); err != nil {
		return nil, err
	}
	return s.repo.ListRetailItems(ctx, shop)
}

func (s *Service) ListAnimals(ctx context.Context) ([]domain.Animal, error) {
	if err := s.authorize(ctx, "animals:read"); err != nil {
		return nil, err
	}
	return s.repo.ListAnimals(ctx)
}

func (s *Service) GetAnimal(ctx context.Context, id string) (domain.Animal, error) {
	if err := s.authorize(ctx, "animals:read"); err != nil {
		return domain.Animal{}, err
	}
	animal, err := s.repo.GetAnimalByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Animal{}, ErrNotFound
		}
		return domain.Animal{}, err
	}
	return *animal, nil
}

func (s *Service) CreateAnimal(ctx context.Context, req domain.AnimalCreateRequest) (domain.Animal, error) {
	if err := s.authorize(ctx, "animals:create"); err != nil {
		return domain.Animal{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Species = strings.TrimSpace(req.Species)
	if req.Name == "" || req.Species == "" {
		return domain.Animal{}, ErrInvalidInput
	}

	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		return domain.Animal{}, ErrInvalidInput
	}
	arrival, err := parseOptionalDate(req.ArrivalDate)
	if err != nil {
		return domain.Animal{}, ErrInvalidInput
	}

	created, err := s.repo.CreateAnimal(ctx, domain.Animal{
		Name:         req.Name,
		Species:      req.Species,
		Breed:        strings.TrimSpace(req.Breed),
		DateOfBirth:  dob,
		ArrivalDate:  arrival,
		Gender:       strings.TrimSpace(req.Gender),
		Habitat:      strings.TrimSpace(req.Habitat),
		DietType:     strings.TrimSpace(req.DietType),
		MedicalNotes: strings.TrimSpace(req.MedicalNotes),
		Status:       domain.AnimalStatusActive,
		KeeperID:     strings.TrimSpace(req.KeeperID),
	})
	if err != nil {
		return domain.Animal{}, mapStoreErr(err)
	}

	s.logAudit(ctx, "animal_create", "animal", created.ID, fmt.Sprintf("name=%s,species=%s", created.Name, created.Species))
	return *created, nil
}

func (s *Service) UpdateAnimal(ctx context.Context, id string, req domain.AnimalUpdateRequest) (domain.Animal, error) {
	if err := s.authorize(ctx, "animals:update"); err != nil {
		return domain.Animal{}, err
	}

	existing, err := s.repo.GetAnimalByID(ctx, id)
	if err != nil {
		return domain.Animal{}, mapStoreErr(err)
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Animal{}, ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Species != nil {
		species := strings.TrimSpace(*req.Species)
		if species == "" {
			return domain.Animal{}, ErrInvalidInput
		}
		updated.Species = species
	}
	if req.Breed != nil {
		updated.Breed = strings.TrimSpace(*req.Breed)
	}
	if req.Habitat != nil {
		updated.Habitat = strings.TrimSpace(*req.Habitat)
	}
	if req.DietType != nil {
		updated.DietType = strings.TrimSpace(*req.DietType)
	}
	if req.MedicalNotes != nil {
		updated.MedicalNotes = strings.TrimSpace(*req.MedicalNotes)
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		switch status {
		case domain.AnimalStatusActive, domain.AnimalStatusQuarantined,
			domain.AnimalStatusTransferred, domain.AnimalStatusDeceased:
			updated.Status = status
		default:
			return domain.Animal{}, ErrInvalidInput
		}
	}
	if req.KeeperID != nil {
		updated.KeeperID = strings.TrimSpace(*req.KeeperID)
	}

	saved, err := s.repo.UpdateAnimal(ctx, updated)
	if err != nil {
		return domain.Animal{}, mapStoreErr(err)
	}

	s.logAudit(ctx, "animal_update", "animal", saved.ID, fmt.Sprintf("status=%s,keeper=%s", saved.Status, saved.KeeperID))
	return *saved, nil
}

func (s *Service) DeleteAnimal(ctx context.Context, id string) error {
	if err := s.authorize(ctx, "animals:delete"); err != nil {
		return err
	}
	if err := s.repo.DeleteAnimal(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.logAudit(ctx, "animal_delete", "animal", id, "")
	return nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	if err := s.authorize(ctx, "employees:read"); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	if err := s.authorize(ctx, "employees:create"); err != nil {
		return domain.Employee{}, err
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.SalaryCents < 0 {
		return domain.Employee{}, ErrInvalidInput
	}

	hireDate := time.Now().UTC()
	if strings.TrimSpace(req.HireDate) != "" {
		parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.HireDate), time.UTC)
		if err != nil {
			return domain.Employee{}, ErrInvalidInput
		}
		hireDate = parsed
	}

	created, err := s.repo.CreateEmployee(ctx, domain.Employee{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       strings.TrimSpace(req.Phone),
		HireDate:    hireDate,
		JobTitle:    strings.TrimSpace(req.JobTitle),
		Department:  strings.TrimSpace(req.Department),
		SalaryCents: req.SalaryCents,
	})
	if err != nil {
		return domain.Employee{}, mapStoreErr(err)
	}

	s.logAudit(ctx, "employee_create", "employee", created.ID, fmt.Sprintf("email=%s,title=%s", created.Email, created.JobTitle))
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if err := s.authorize(ctx, "customers:read"); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := s.authorize(ctx, "customers:create"); err != nil {
		return domain.Customer{}, err
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return domain.Customer{}, ErrInvalidInput
	}
	membership := strings.TrimSpace(req.MembershipType)
	if membership == "" {
		membership = "standard"
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            strings.TrimSpace(req.Phone),
		Address:          strings.TrimSpace(req.Address),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		ZipCode:          strings.TrimSpace(req.ZipCode),
		MembershipType:   membership,
		RegistrationDate: time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, mapStoreErr(err)
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, "membership="+created.MembershipType)
	return *created, nil
}

func (s *Service) ListTickets(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if err := s.authorize(ctx, "tickets:read"); err != nil {
		return nil, err
	}
	return s.repo.ListTickets(ctx, limit)
}

func (s *Service) BookTicket(ctx context.Context, req domain.TicketBookRequest) (domain.Ticket, error) {
	if err := s.authorize(ctx, "tickets:create"); err != nil {
		return domain.Ticket{}, err
	}

	if req.CustomerID == "" || strings.TrimSpace(req.TicketType) == "" || req.PriceCents < 0 {
		return domain.Ticket{}, ErrInvalidInput
	}
	visitDate, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.VisitDate), time.UTC)
	if err != nil {
		return domain.Ticket{}, ErrInvalidInput
	}

	created, err := s.repo.CreateTicket(ctx, domain.Ticket{
		CustomerID:    req.CustomerID,
		VisitDate:     visitDate,
		TicketType:    strings.TrimSpace(req.TicketType),
		PriceCents:    req.PriceCents,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		PurchaseDate:  time.Now().UTC(),
	})
	if err != nil {
		return domain.Ticket{}, mapStoreErr(err)
	}

	s.logAudit(ctx, "ticket_book", "ticket", created.ID, fmt.Sprintf("type=%s,price_cents=%d", created.TicketType, created.PriceCents))
	return *created, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if err := s.authorize(ctx, "audit_logs:read"); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s: %v", action, entityID, err)
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return ErrInvalidInput
	default:
		return err
	}
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
