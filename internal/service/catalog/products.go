package catalog

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// ProductService регистрирует, изменяет и удаляет продукты.
type ProductService struct {
	base
}

func NewProductService(store domain.Store, logger *log.Entry) *ProductService {
	return &ProductService{base: newBase(store, logger, "products")}
}

// Register создаёт продукт с уникальным кодом.
func (s *ProductService) Register(ctx context.Context, sub domain.ProductSubmission) (domain.Product, error) {
	product, err := domain.RegisterProduct(sub.Code, sub.Name)
	if err != nil {
		return domain.Product{}, err
	}

	var stored domain.Product
	err = s.write(ctx, func(uow domain.UnitOfWork) error {
		_, err := uow.Products().FindByCode(ctx, sub.Code)
		switch {
		case err == nil:
			return domain.ErrProductCodeExists.Withf("product with code %s already exists", sub.Code)
		case !errors.Is(err, domain.ErrProductNotFound):
			return fmt.Errorf("find product %s: %w", sub.Code, err)
		}

		stored, err = uow.Products().Insert(ctx, product)
		if err != nil {
			return err
		}
		msg, err := domain.ProductCreatedMessage(stored)
		return enqueue(ctx, uow, msg, err)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": stored.ID,
		"code":       stored.Code,
	}).Info("product registered")
	return stored, nil
}

// RegisterBatch регистрирует пакет продуктов в одной единице работы:
// сохраняются либо все продукты, либо ни одного.
func (s *ProductService) RegisterBatch(ctx context.Context, batch []domain.ProductSubmission) ([]domain.Product, error) {
	if len(batch) == 0 {
		return []domain.Product{}, nil
	}
	if dups := domain.DuplicateProductCodes(batch); len(dups) > 0 {
		return nil, domain.ErrDuplicateProductCodeInBatch.Withf("product batch contains duplicate codes: %v", dups)
	}

	products := make([]domain.Product, 0, len(batch))
	for i, sub := range batch {
		product, err := domain.RegisterProduct(sub.Code, sub.Name)
		if err != nil {
			return nil, atIndex(err, i)
		}
		products = append(products, product)
	}

	var stored []domain.Product
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		for i, p := range products {
			_, err := uow.Products().FindByCode(ctx, p.Code)
			switch {
			case err == nil:
				return domain.ErrProductCodeExists.Withf("product %d: code %s already exists", i, p.Code)
			case !errors.Is(err, domain.ErrProductNotFound):
				return fmt.Errorf("find product %s: %w", p.Code, err)
			}
		}

		var err error
		stored, err = uow.Products().InsertMany(ctx, products)
		if err != nil {
			return err
		}
		for _, p := range stored {
			msg, err := domain.ProductCreatedMessage(p)
			if err := enqueue(ctx, uow, msg, err); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("products", len(stored)).Info("product batch registered")
	return stored, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := s.read(ctx, func(uow domain.UnitOfWork) error {
		var err error
		product, err = uow.Products().FindByID(ctx, id)
		return err
	})
	return product, err
}

func (s *ProductService) List(ctx context.Context, page domain.Page) ([]domain.Product, error) {
	page = domain.NewPage(page.Number, page.Size)

	var products []domain.Product
	err := s.read(ctx, func(uow domain.UnitOfWork) error {
		var err error
		products, err = uow.Products().ListPage(ctx, page)
		return err
	})
	return products, err
}

// Rename меняет название продукта; код остаётся прежним.
func (s *ProductService) Rename(ctx context.Context, id int64, name string) (domain.Product, error) {
	var renamed domain.Product
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		current, err := uow.Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		candidate, err := domain.RegisterProduct(current.Code, name)
		if err != nil {
			return err
		}
		renamed, err = uow.Products().Update(ctx, id, candidate)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return renamed, nil
}

// Update заменяет код и название продукта.
func (s *ProductService) Update(ctx context.Context, id int64, sub domain.ProductSubmission) (domain.Product, error) {
	candidate, err := domain.RegisterProduct(sub.Code, sub.Name)
	if err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err = s.write(ctx, func(uow domain.UnitOfWork) error {
		if _, err := uow.Products().FindByID(ctx, id); err != nil {
			return err
		}
		holder, err := uow.Products().FindByCode(ctx, sub.Code)
		switch {
		case err == nil && holder.ID != id:
			return domain.ErrProductCodeExists.Withf("product with code %s already exists", sub.Code)
		case err != nil && !errors.Is(err, domain.ErrProductNotFound):
			return fmt.Errorf("find product %s: %w", sub.Code, err)
		}
		updated, err = uow.Products().Update(ctx, id, candidate)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": updated.ID,
		"code":       updated.Code,
	}).Info("product updated")
	return updated, nil
}

// Delete удаляет продукт, не используемый в заказах.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.write(ctx, func(uow domain.UnitOfWork) error {
		return uow.Products().Delete(ctx, id)
	})
}
