package memory

import (
	"context"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

type productRepository struct {
	uow *unitOfWork
}

func (r *productRepository) FindByID(_ context.Context, id int64) (domain.Product, error) {
	if err := r.uow.check(); err != nil {
		return domain.Product{}, err
	}
	p, ok := r.uow.st.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *productRepository) FindByCode(_ context.Context, code string) (domain.Product, error) {
	if err := r.uow.check(); err != nil {
		return domain.Product{}, err
	}
	for _, p := range r.uow.st.products {
		if p.Code == code {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (r *productRepository) Insert(_ context.Context, product domain.Product) (domain.Product, error) {
	if err := r.uow.check(); err != nil {
		return domain.Product{}, err
	}
	if r.codeTaken(product.Code, 0) {
		return domain.Product{}, domain.ErrProductCodeExists.Withf("product with code %s already exists", product.Code)
	}
	r.uow.st.nextProductID++
	stored := domain.RestoreProduct(r.uow.st.nextProductID, product.Code, product.Name)
	r.uow.st.products[stored.ID] = stored
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

func (r *productRepository) Update(_ context.Context, id int64, product domain.Product) (domain.Product, error) {
	if err := r.uow.check(); err != nil {
		return domain.Product{}, err
	}
	if _, ok := r.uow.st.products[id]; !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if r.codeTaken(product.Code, id) {
		return domain.Product{}, domain.ErrProductCodeExists.Withf("product with code %s already exists", product.Code)
	}
	stored := domain.RestoreProduct(id, product.Code, product.Name)
	r.uow.st.products[id] = stored
	return stored, nil
}

func (r *productRepository) Delete(_ context.Context, id int64) error {
	if err := r.uow.check(); err != nil {
		return err
	}
	p, ok := r.uow.st.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	for _, o := range r.uow.st.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return domain.ErrProductInUse.Withf("product %s is referenced by order %d", p.Code, o.Number)
			}
		}
	}
	delete(r.uow.st.products, id)
	return nil
}

func (r *productRepository) ListPage(_ context.Context, page domain.Page) ([]domain.Product, error) {
	if err := r.uow.check(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(r.uow.st.products))
	for id := range r.uow.st.products {
		ids = append(ids, id)
	}
	ids = pageIDs(ids, page)

	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.uow.st.products[id])
	}
	return out, nil
}

func (r *productRepository) codeTaken(code string, exceptID int64) bool {
	for id, p := range r.uow.st.products {
		if id != exceptID && p.Code == code {
			return true
		}
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
