package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

const customerColumns = `id, first_name, last_name, email, date_of_birth`

type customerRepository struct {
	uow *unitOfWork
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.DateOfBirth); err != nil {
		return domain.Customer{}, err
	}
	return domain.RestoreCustomer(c.ID, c.FirstName, c.LastName, c.Email, c.DateOfBirth, nil), nil
}

func (r *customerRepository) FindByID(ctx context.Context, id int64) (domain.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, email)
}

func (r *customerRepository) findOne(ctx context.Context, query string, arg any) (domain.Customer, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	defer cancel()

	c, err := scanCustomer(tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}

	c.Addresses, err = loadAddresses(ctx, tx, c.ID)
	if err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (r *customerRepository) Insert(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	defer cancel()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO customers (first_name, last_name, email, date_of_birth)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, customer.FirstName, customer.LastName, customer.Email, customer.DateOfBirth).Scan(&customer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrEmailExists.Withf("customer with email %s already exists", customer.Email)
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	addresses := make([]domain.Address, 0, len(customer.Addresses))
	for _, addr := range customer.Addresses {
		stored, err := insertAddress(ctx, tx, customer.ID, addr)
		if err != nil {
			return domain.Customer{}, err
		}
		addresses = append(addresses, stored)
	}
	customer.Addresses = addresses
	return customer, nil
}

func (r *customerRepository) InsertMany(ctx context.Context, customers []domain.Customer) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		stored, err := r.Insert(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *customerRepository) Update(ctx context.Context, id int64, customer domain.Customer) (domain.Customer, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	defer cancel()

	updated, err := scanCustomer(tx.QueryRowContext(ctx, `
		UPDATE customers
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    date_of_birth = $5
		WHERE id = $1
		RETURNING `+customerColumns,
		id, customer.FirstName, customer.LastName, customer.Email, customer.DateOfBirth,
	))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Customer{}, domain.ErrCustomerNotFound
		case isUniqueViolation(err):
			return domain.Customer{}, domain.ErrEmailExists.Withf("customer with email %s already exists", customer.Email)
		}
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	updated.Addresses, err = loadAddresses(ctx, tx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return updated, nil
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCustomerHasOrders.Withf("customer %d is referenced by orders", id)
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	return expectAffected(res, domain.ErrCustomerNotFound)
}

func (r *customerRepository) ListPage(ctx context.Context, page domain.Page) ([]domain.Customer, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]domain.Customer, 0, page.Size)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}
	_ = rows.Close()

	for i := range customers {
		customers[i].Addresses, err = loadAddresses(ctx, tx, customers[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return customers, nil
}

func (r *customerRepository) AddAddress(ctx context.Context, customerID int64, address domain.Address) (domain.Address, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	defer cancel()

	stored, err := insertAddress(ctx, tx, customerID, address)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Address{}, domain.ErrCustomerNotFound
		}
		return domain.Address{}, err
	}
	return stored, nil
}

func (r *customerRepository) DeleteAddress(ctx context.Context, customerID, addressID int64) error {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND customer_id = $2`, addressID, customerID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return expectAffected(res, domain.ErrAddressNotFound)
}

func insertAddress(ctx context.Context, tx *sql.Tx, customerID int64, addr domain.Address) (domain.Address, error) {
	addr.CustomerID = customerID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO addresses (
			customer_id, zip_code, street, number, neighborhood,
			complement, city, state, country
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		customerID, addr.ZipCode, addr.Street, addr.Number, addr.Neighborhood,
		addr.Complement, addr.City, addr.State, addr.Country,
	).Scan(&addr.ID)
	if err != nil {
		return domain.Address{}, fmt.Errorf("insert address: %w", err)
	}
	return addr, nil
}

func loadAddresses(ctx context.Context, tx *sql.Tx, customerID int64) ([]domain.Address, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, customer_id, zip_code, street, number, neighborhood,
		       complement, city, state, country
		FROM addresses
		WHERE customer_id = $1
		ORDER BY id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(
			&a.ID, &a.CustomerID, &a.ZipCode, &a.Street, &a.Number, &a.Neighborhood,
			&a.Complement, &a.City, &a.State, &a.Country,
		); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return addresses, nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
