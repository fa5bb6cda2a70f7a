package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"zooops/backend/internal/domain"
	"zooops/backend/internal/store"
	"zooops/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	animals         map[string]domain.Animal
	employees       map[string]domain.Employee
	customers       map[string]domain.Customer
	tickets         map[string]domain.Ticket
	retailItems     map[string]domain.RetailItem
	sales           map[string]domain.Sale
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production runs
// use PostgreSQL accounts instead (DATABASE_URL set).
func seedUsers(employees map[string]domain.Employee) map[string]domain.UserAccount {
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	employeeByRole := make(map[string]string, len(employees))
	for id, emp := range employees {
		employeeByRole[strings.ToLower(emp.JobTitle)] = id
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"manager", managerPwd, "manager"},
		{"cashier", cashierPwd, "cashier"},
		{"keeper", envOr("SEED_KEEPER_PASSWORD", "keeper123"), "keeper"},
		{"security", envOr("SEED_SECURITY_PASSWORD", "security123"), "security"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:   u.username,
			Password:   string(hash),
			Role:       u.role,
			EmployeeID: employeeByRole[u.role],
			Active:     true,
			CreatedAt:  now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		animals:         make(map[string]domain.Animal),
		employees:       make(map[string]domain.Employee),
		customers:       make(map[string]domain.Customer),
		tickets:         make(map[string]domain.Ticket),
		retailItems:     make(map[string]domain.RetailItem),
		sales:           make(map[string]domain.Sale),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()

	hireDate := time.Date(2022, time.March, 14, 0, 0, 0, 0, time.UTC)
	employees := []domain.Employee{
		{ID: "emp-manager-01", FirstName: "Dana", LastName: "Whitfield", Email: "dana.whitfield@zoo.test", HireDate: hireDate, JobTitle: "manager", Department: "administration", SalaryCents: 7200000},
		{ID: "emp-cashier-01", FirstName: "Ravi", LastName: "Patel", Email: "ravi.patel@zoo.test", HireDate: hireDate, JobTitle: "cashier", Department: "retail", SalaryCents: 3400000},
		{ID: "emp-keeper-01", FirstName: "Mei", LastName: "Tanaka", Email: "mei.tanaka@zoo.test", HireDate: hireDate, JobTitle: "keeper", Department: "animal care", SalaryCents: 3900000},
		{ID: "emp-security-01", FirstName: "Tomas", LastName: "Reyes", Email: "tomas.reyes@zoo.test", HireDate: hireDate, JobTitle: "security", Department: "operations", SalaryCents: 3600000},
	}
	for _, emp := range employees {
		s.employees[emp.ID] = emp
	}

	customers := []domain.Customer{
		{ID: "cus-01", FirstName: "Alice", LastName: "Moreau", Email: "alice.moreau@example.test", MembershipType: "annual", RegistrationDate: hireDate},
		{ID: "cus-02", FirstName: "Ben", LastName: "Okafor", Email: "ben.okafor@example.test", MembershipType: "standard", RegistrationDate: hireDate},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}

	arrival := time.Date(2021, time.June, 2, 0, 0, 0, 0, time.UTC)
	animals := []domain.Animal{
		{ID: "ani-lion-01", Name: "Zuri", Species: "African Lion", Habitat: "savanna", DietType: "carnivore", Status: domain.AnimalStatusActive, KeeperID: "emp-keeper-01", ArrivalDate: &arrival},
		{ID: "ani-otter-01", Name: "Pebble", Species: "Sea Otter", Habitat: "coastal", DietType: "piscivore", Status: domain.AnimalStatusActive, KeeperID: "emp-keeper-01", ArrivalDate: &arrival},
		{ID: "ani-macaw-01", Name: "Rio", Species: "Scarlet Macaw", Habitat: "aviary", DietType: "frugivore", Status: domain.AnimalStatusActive, ArrivalDate: &arrival},
	}
	for _, a := range animals {
		s.animals[a.ID] = a
	}

	items := []domain.RetailItem{
		{ID: "item-plush-lion", Shop: domain.ShopGiftShop, Name: "Plush Lion", PriceCents: 2000, QuantityInStock: 120},
		{ID: "item-mug-otter", Shop: domain.ShopGiftShop, Name: "Otter Mug", PriceCents: 1500, QuantityInStock: 80},
		{ID: "item-postcards", Shop: domain.ShopGiftShop, Name: "Postcard Set", PriceCents: 600, QuantityInStock: 200},
		{ID: "item-sandwich", Shop: domain.ShopCafe, Name: "Sandwich", PriceCents: 550, QuantityInStock: 60},
		{ID: "item-coffee", Shop: domain.ShopCafe, Name: "Coffee", PriceCents: 350, QuantityInStock: 150},
		{ID: "item-juice", Shop: domain.ShopCafe, Name: "Orange Juice", PriceCents: 400, QuantityInStock: 90},
	}
	for _, item := range items {
		s.retailItems[item.ID] = item
	}

	s.usersByUsername = seedUsers(s.employees)
	return s
}

func (s *Store) ListAnimals(_ context.Context) ([]domain.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	animals := make([]domain.Animal, 0, len(s.animals))
	for _, a := range s.animals {
		a.KeeperName = s.keeperNameLocked(a.KeeperID)
		animals = append(animals, a)
	}
	slices.SortFunc(animals, func(a, b domain.Animal) int {
		return cmpString(a.Name, b.Name)
	})
	return animals, nil
}

func (s *Store) GetAnimalByID(_ context.Context, id string) (*domain.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	animal, exists := s.animals[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	animal.KeeperName = s.keeperNameLocked(animal.KeeperID)
	found := animal
	return &found, nil
}

func (s *Store) CreateAnimal(_ context.Context, animal domain.Animal) (*domain.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if animal.Name == "" || animal.Species == "" {
		return nil, store.ErrInvalidInput
	}
	if animal.KeeperID != "" {
		if _, exists := s.employees[animal.KeeperID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	if animal.ID == "" {
		animal.ID = xid.New("ani")
	}
	if animal.Status == "" {
		animal.Status = domain.AnimalStatusActive
	}
	if _, exists := s.animals[animal.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	s.animals[animal.ID] = animal
	created := animal
	return &created, nil
}

func (s *Store) UpdateAnimal(_ context.Context, animal domain.Animal) (*domain.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if animal.ID == "" || animal.Name == "" || animal.Species == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.animals[animal.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if animal.KeeperID != "" {
		if _, exists := s.employees[animal.KeeperID]; !exists {
			return nil, store.ErrNotFound
		}
	}

	s.animals[animal.ID] = animal
	updated := animal
	return &updated, nil
}

func (s *Store) DeleteAnimal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.animals[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.animals, id)
	return nil
}

func (s *Store) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]domain.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		employees = append(employees, emp)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		if a.LastName == b.LastName {
			return cmpString(a.FirstName, b.FirstName)
		}
		return cmpString(a.LastName, b.LastName)
	})
	return employees, nil
}

func (s *Store) CreateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if employee.FirstName == "" || employee.LastName == "" || employee.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	if employee.HireDate.IsZero() {
		employee.HireDate = time.Now().UTC()
	}
	for _, existing := range s.employees {
		if existing.Email == employee.Email {
			return nil, store.ErrInvalidInput
		}
	}

	s.employees[employee.ID] = employee
	created := employee
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.LastName == b.LastName {
			return cmpString(a.FirstName, b.FirstName)
		}
		return cmpString(a.LastName, b.LastName)
	})
	return customers, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.FirstName == "" || customer.LastName == "" || customer.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.RegistrationDate.IsZero() {
		customer.RegistrationDate = time.Now().UTC()
	}
	for _, existing := range s.customers {
		if existing.Email == customer.Email {
			return nil, store.ErrInvalidInput
		}
	}

	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListTickets(_ context.Context, limit int) ([]domain.Ticket, error) {
	if limit < 1 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if c, exists := s.customers[t.CustomerID]; exists {
			t.CustomerName = c.FirstName + " " + c.LastName
		}
		tickets = append(tickets, t)
	}
	slices.SortFunc(tickets, func(a, b domain.Ticket) int {
		return b.PurchaseDate.Compare(a.PurchaseDate)
	})
	if len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return tickets, nil
}

func (s *Store) CreateTicket(_ context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.CustomerID == "" || ticket.TicketType == "" || ticket.PriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.customers[ticket.CustomerID]; !exists {
		return nil, store.ErrNotFound
	}
	if ticket.ID == "" {
		ticket.ID = xid.New("tkt")
	}
	if ticket.PurchaseDate.IsZero() {
		ticket.PurchaseDate = time.Now().UTC()
	}

	s.tickets[ticket.ID] = ticket
	created := ticket
	return &created, nil
}

func (s *Store) ListRetailItems(_ context.Context, shop string) ([]domain.RetailItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.RetailItem, 0, len(s.retailItems))
	for _, item := range s.retailItems {
		if shop != "" && item.Shop != shop {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.RetailItem) int {
		if a.Shop == b.Shop {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Shop, b.Shop)
	})
	return items, nil
}

func (s *Store) GetRetailItemByID(_ context.Context, itemID string) (*domain.RetailItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.retailItems[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

// CreateSale checks stock and applies both mutations inside one critical
// section, so concurrent sales can never overdraw the item and a failed
// sale leaves no record behind.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ItemID == "" || sale.Quantity < 1 || sale.TotalAmountCents < 0 {
		return nil, store.ErrInvalidInput
	}

	item, exists := s.retailItems[sale.ItemID]
	if !exists || item.Shop != sale.Shop {
		return nil, store.ErrNotFound
	}
	if item.QuantityInStock < sale.Quantity {
		return nil, store.ErrInsufficientStock
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now().UTC()
	}

	item.QuantityInStock -= sale.Quantity
	s.retailItems[sale.ItemID] = item
	s.sales[sale.ID] = sale

	created := sale
	return &created, nil
}

func (s *Store) DailyRevenue(_ context.Context, day time.Time) (domain.RevenueReport, error) {
	day = dateUTC(day)
	return s.revenueBetween(day, day.AddDate(0, 0, 1)), nil
}

func (s *Store) MonthlyRevenue(_ context.Context, year int, month time.Month) (domain.RevenueReport, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.revenueBetween(from, from.AddDate(0, 1, 0)), nil
}

func (s *Store) revenueBetween(from time.Time, to time.Time) domain.RevenueReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report domain.RevenueReport
	for _, t := range s.tickets {
		if inWindow(t.PurchaseDate, from, to) {
			report.TicketRevenueCents = addCents(report.TicketRevenueCents, t.PriceCents)
		}
	}
	for _, sale := range s.sales {
		if !inWindow(sale.SaleDate, from, to) {
			continue
		}
		switch sale.Shop {
		case domain.ShopGiftShop:
			report.GiftShopRevenueCents = addCents(report.GiftShopRevenueCents, sale.TotalAmountCents)
		case domain.ShopCafe:
			report.FoodRevenueCents = addCents(report.FoodRevenueCents, sale.TotalAmountCents)
		}
	}
	return report
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if inWindow(entry.CreatedAt, from, to) {
			logs = append(logs, entry)
		}
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) keeperNameLocked(keeperID string) string {
	if keeperID == "" {
		return ""
	}
	emp, exists := s.employees[keeperID]
	if !exists {
		return ""
	}
	return emp.FirstName + " " + emp.LastName
}

func inWindow(t time.Time, from time.Time, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func addCents(sum *int64, amount int64) *int64 {
	if sum == nil {
		total := amount
		return &total
	}
	*sum += amount
	return sum
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
