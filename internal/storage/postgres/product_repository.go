package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

type productRepository struct {
	uow *unitOfWork
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		id         int64
		code, name string
	)
	if err := row.Scan(&id, &code, &name); err != nil {
		return domain.Product{}, err
	}
	return domain.RestoreProduct(id, code, name), nil
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (domain.Product, error) {
	return r.findOne(ctx, `SELECT id, code, name FROM products WHERE id = $1`, id)
}

func (r *productRepository) FindByCode(ctx context.Context, code string) (domain.Product, error) {
	return r.findOne(ctx, `SELECT id, code, name FROM products WHERE code = $1`, code)
}

func (r *productRepository) findOne(ctx context.Context, query string, arg any) (domain.Product, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	defer cancel()

	p, err := scanProduct(tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *productRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	defer cancel()

	stored, err := scanProduct(tx.QueryRowContext(ctx, `
		INSERT INTO products (code, name)
		VALUES ($1,$2)
		RETURNING id, code, name
	`, product.Code, product.Name))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductCodeExists.Withf("product with code %s already exists", product.Code)
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return stored, nil
}

func (r *productRepository) InsertMany(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		stored, err := r.Insert(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *productRepository) Update(ctx context.Context, id int64, product domain.Product) (domain.Product, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	defer cancel()

	stored, err := scanProduct(tx.QueryRowContext(ctx, `
		UPDATE products
		SET code = $2,
		    name = $3
		WHERE id = $1
		RETURNING id, code, name
	`, id, product.Code, product.Name))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Product{}, domain.ErrProductNotFound
		case isUniqueViolation(err):
			return domain.Product{}, domain.ErrProductCodeExists.Withf("product with code %s already exists", product.Code)
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return stored, nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductInUse.Withf("product %d is referenced by orders", id)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) ListPage(ctx context.Context, page domain.Page) ([]domain.Product, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, code, name
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, page.Size)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
