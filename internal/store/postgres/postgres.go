package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"zooops/backend/internal/domain"
	"zooops/backend/internal/store"
	"zooops/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListAnimals(ctx context.Context) ([]domain.Animal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.animal_id, a.name, a.species, a.breed, a.date_of_birth, a.arrival_date,
			a.gender, a.habitat, a.diet_type, a.medical_notes, a.status, a.keeper_id,
			COALESCE(e.first_name || ' ' || e.last_name, '')
		FROM animals a
		LEFT JOIN employees e ON a.keeper_id = e.employee_id
		ORDER BY a.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	animals := make([]domain.Animal, 0, 64)
	for rows.Next() {
		animal, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		animals = append(animals, animal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return animals, nil
}

func (s *Store) GetAnimalByID(ctx context.Context, id string) (*domain.Animal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.animal_id, a.name, a.species, a.breed, a.date_of_birth, a.arrival_date,
			a.gender, a.habitat, a.diet_type, a.medical_notes, a.status, a.keeper_id,
			COALESCE(e.first_name || ' ' || e.last_name, '')
		FROM animals a
		LEFT JOIN employees e ON a.keeper_id = e.employee_id
		WHERE a.animal_id = $1
	`, id)
	animal, err := scanAnimal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &animal, nil
}

func (s *Store) CreateAnimal(ctx context.Context, animal domain.Animal) (*domain.Animal, error) {
	if animal.Name == "" || animal.Species == "" {
		return nil, store.ErrInvalidInput
	}
	if animal.ID == "" {
		animal.ID = xid.New("ani")
	}
	if animal.Status == "" {
		animal.Status = domain.AnimalStatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO animals (
			animal_id, name, species, breed, date_of_birth, arrival_date, gender,
			habitat, diet_type, medical_notes, status, keeper_id, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
	`, animal.ID, animal.Name, animal.Species, nullIfEmpty(animal.Breed), nullDate(animal.DateOfBirth),
		nullDate(animal.ArrivalDate), nullIfEmpty(animal.Gender), nullIfEmpty(animal.Habitat),
		nullIfEmpty(animal.DietType), nullIfEmpty(animal.MedicalNotes), animal.Status, nullIfEmpty(animal.KeeperID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := animal
	return &created, nil
}

func (s *Store) UpdateAnimal(ctx context.Context, animal domain.Animal) (*domain.Animal, error) {
	if animal.ID == "" || animal.Name == "" || animal.Species == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE animals
		SET name = $2, species = $3, breed = $4, habitat = $5, diet_type = $6,
			medical_notes = $7, status = $8, keeper_id = $9, updated_at = now()
		WHERE animal_id = $1
	`, animal.ID, animal.Name, animal.Species, nullIfEmpty(animal.Breed), nullIfEmpty(animal.Habitat),
		nullIfEmpty(animal.DietType), nullIfEmpty(animal.MedicalNotes), animal.Status, nullIfEmpty(animal.KeeperID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := animal
	return &updated, nil
}

func (s *Store) DeleteAnimal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM animals WHERE animal_id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, first_name, last_name, email, phone, hire_date,
			job_title, department, salary_cents
		FROM employees
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 32)
	for rows.Next() {
		var emp domain.Employee
		var phone sql.NullString
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &phone,
			&emp.HireDate, &emp.JobTitle, &emp.Department, &emp.SalaryCents); err != nil {
			return nil, err
		}
		emp.HireDate = emp.HireDate.UTC()
		emp.Phone = phone.String
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.FirstName == "" || employee.LastName == "" || employee.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	if employee.HireDate.IsZero() {
		employee.HireDate = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (
			employee_id, first_name, last_name, email, phone, hire_date,
			job_title, department, salary_cents, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
	`, employee.ID, employee.FirstName, employee.LastName, employee.Email, nullIfEmpty(employee.Phone),
		employee.HireDate, employee.JobTitle, employee.Department, employee.SalaryCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := employee
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, first_name, last_name, email, phone, address, city,
			state, zip_code, membership_type, registration_date
		FROM customers
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		var phone, address, city, state, zip sql.NullString
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &phone, &address,
			&city, &state, &zip, &c.MembershipType, &c.RegistrationDate); err != nil {
			return nil, err
		}
		c.Phone, c.Address, c.City, c.State, c.ZipCode = phone.String, address.String, city.String, state.String, zip.String
		c.RegistrationDate = c.RegistrationDate.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.FirstName == "" || customer.LastName == "" || customer.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.RegistrationDate.IsZero() {
		customer.RegistrationDate = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (
			customer_id, first_name, last_name, email, phone, address, city,
			state, zip_code, membership_type, registration_date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, customer.ID, customer.FirstName, customer.LastName, customer.Email, nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Address), nullIfEmpty(customer.City), nullIfEmpty(customer.State),
		nullIfEmpty(customer.ZipCode), customer.MembershipType, customer.RegistrationDate)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListTickets(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.ticket_id, t.customer_id, COALESCE(c.first_name || ' ' || c.last_name, ''),
			t.visit_date, t.ticket_type, t.price_cents, t.payment_method, t.purchase_date
		FROM tickets t
		LEFT JOIN customers c ON t.customer_id = c.customer_id
		ORDER BY t.purchase_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0, limit)
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.CustomerName, &t.VisitDate,
			&t.TicketType, &t.PriceCents, &t.PaymentMethod, &t.PurchaseDate); err != nil {
			return nil, err
		}
		t.VisitDate = t.VisitDate.UTC()
		t.PurchaseDate = t.PurchaseDate.UTC()
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	if ticket.CustomerID == "" || ticket.TicketType == "" || ticket.PriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if ticket.ID == "" {
		ticket.ID = xid.New("tkt")
	}
	if ticket.PurchaseDate.IsZero() {
		ticket.PurchaseDate = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (ticket_id, customer_id, visit_date, ticket_type, price_cents, payment_method, purchase_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ticket.ID, ticket.CustomerID, ticket.VisitDate, ticket.TicketType, ticket.PriceCents,
		ticket.PaymentMethod, ticket.PurchaseDate)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := ticket
	return &created, nil
}

func (s *Store) ListRetailItems(ctx context.Context, shop string) ([]domain.RetailItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, shop, name, price_cents, quantity_in_stock
		FROM retail_items
		WHERE ($1 = '' OR shop = $1)
		ORDER BY shop, name
	`, shop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.RetailItem, 0, 64)
	for rows.Next() {
		var item domain.RetailItem
		if err := rows.Scan(&item.ID, &item.Shop, &item.Name, &item.PriceCents, &item.QuantityInStock); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) GetRetailItemByID(ctx context.Context, itemID string) (*domain.RetailItem, error) {
	var item domain.RetailItem
	err := s.db.QueryRowContext(ctx, `
		SELECT item_id, shop, name, price_cents, quantity_in_stock
		FROM retail_items
		WHERE item_id = $1
	`, itemID).Scan(&item.ID, &item.Shop, &item.Name, &item.PriceCents, &item.QuantityInStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateSale runs the sale as one unit of work: lock the item row, verify
// stock, insert the sale, decrement the inventory, commit. The deferred
// rollback is a no-op after a successful commit and restores the store on
// every other exit path, including a failed commit.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ItemID == "" || sale.Quantity < 1 || sale.TotalAmountCents < 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Row lock serializes concurrent sales against the same item so two
	// transactions cannot both read the same pre-decrement stock.
	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity_in_stock
		FROM retail_items
		WHERE item_id = $1 AND shop = $2
		FOR UPDATE
	`, sale.ItemID, sale.Shop).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if stock < sale.Quantity {
		return nil, store.ErrInsufficientStock
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now().UTC()
	}

	// Insert before decrement: a decrement failure must still be able to
	// roll back the staged sale row.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (sale_id, shop, customer_id, item_id, quantity, total_amount_cents, payment_method, employee_id, sale_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.Shop, nullIfEmpty(sale.CustomerID), sale.ItemID, sale.Quantity,
		sale.TotalAmountCents, sale.PaymentMethod, sale.EmployeeID, sale.SaleDate)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE retail_items
		SET quantity_in_stock = quantity_in_stock - $1, updated_at = now()
		WHERE item_id = $2
	`, sale.Quantity, sale.ItemID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

// DailyRevenue sums the three revenue sources for one calendar date. The
// sums stay independent: a failure in one source fails the report rather
// than zeroing the others, and an empty source reports nil.
func (s *Store) DailyRevenue(ctx context.Context, day time.Time) (domain.RevenueReport, error) {
	day = nowDateUTC(day)
	var report domain.RevenueReport

	ticket, err := s.sumRevenue(ctx, `
		SELECT SUM(price_cents)
		FROM tickets
		WHERE purchase_date >= $1 AND purchase_date < $2
	`, day, day.AddDate(0, 0, 1))
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceTickets, Err: err}
	}
	report.TicketRevenueCents = ticket

	gift, err := s.sumShopRevenue(ctx, domain.ShopGiftShop, day, day.AddDate(0, 0, 1))
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceGiftShop, Err: err}
	}
	report.GiftShopRevenueCents = gift

	food, err := s.sumShopRevenue(ctx, domain.ShopCafe, day, day.AddDate(0, 0, 1))
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceFood, Err: err}
	}
	report.FoodRevenueCents = food

	return report, nil
}

func (s *Store) MonthlyRevenue(ctx context.Context, year int, month time.Month) (domain.RevenueReport, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	var report domain.RevenueReport

	ticket, err := s.sumRevenue(ctx, `
		SELECT SUM(price_cents)
		FROM tickets
		WHERE purchase_date >= $1 AND purchase_date < $2
	`, from, to)
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceTickets, Err: err}
	}
	report.TicketRevenueCents = ticket

	gift, err := s.sumShopRevenue(ctx, domain.ShopGiftShop, from, to)
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceGiftShop, Err: err}
	}
	report.GiftShopRevenueCents = gift

	food, err := s.sumShopRevenue(ctx, domain.ShopCafe, from, to)
	if err != nil {
		return report, &store.RevenueSourceError{Source: store.SourceFood, Err: err}
	}
	report.FoodRevenueCents = food

	return report, nil
}

func (s *Store) sumRevenue(ctx context.Context, query string, from time.Time, to time.Time) (*int64, error) {
	var sum sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, from, to).Scan(&sum); err != nil {
		return nil, err
	}
	if !sum.Valid {
		return nil, nil
	}
	value := sum.Int64
	return &value, nil
}

func (s *Store) sumShopRevenue(ctx context.Context, shop string, from time.Time, to time.Time) (*int64, error) {
	var sum sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(total_amount_cents)
		FROM sales
		WHERE shop = $1 AND sale_date >= $2 AND sale_date < $3
	`, shop, from, to).Scan(&sum)
	if err != nil {
		return nil, err
	}
	if !sum.Valid {
		return nil, nil
	}
	value := sum.Int64
	return &value, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), strings.TrimSpace(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, COALESCE(entity_id, ''), detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_accounts (username, password, role, employee_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.EmployeeID), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, COALESCE(employee_id, ''), active, created_at
		FROM user_accounts
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 32)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.EmployeeID,
			&user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_accounts SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnimal(row rowScanner) (domain.Animal, error) {
	var animal domain.Animal
	var breed, gender, habitat, diet, notes, keeperID sql.NullString
	var dob, arrival sql.NullTime
	err := row.Scan(&animal.ID, &animal.Name, &animal.Species, &breed, &dob, &arrival,
		&gender, &habitat, &diet, &notes, &animal.Status, &keeperID, &animal.KeeperName)
	if err != nil {
		return domain.Animal{}, err
	}
	animal.Breed = breed.String
	animal.Gender = gender.String
	animal.Habitat = habitat.String
	animal.DietType = diet.String
	animal.MedicalNotes = notes.String
	animal.KeeperID = keeperID.String
	if dob.Valid {
		d := nowDateUTC(dob.Time)
		animal.DateOfBirth = &d
	}
	if arrival.Valid {
		a := nowDateUTC(arrival.Time)
		animal.ArrivalDate = &a
	}
	return animal, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return nowDateUTC(*val)
}
