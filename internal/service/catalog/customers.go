package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// CustomerService регистрирует клиентов и управляет их адресами.
type CustomerService struct {
	base
}

// NewCustomerService создаёт сервис клиентов.
func NewCustomerService(store domain.Store, logger *log.Entry) *CustomerService {
	return &CustomerService{base: newBase(store, logger, "customers")}
}

// WithClock подменяет источник текущего времени (для тестов).
func (s *CustomerService) WithClock(now func() time.Time) *CustomerService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register создаёт клиента с адресами. Email должен быть свободен.
func (s *CustomerService) Register(ctx context.Context, sub domain.CustomerSubmission) (domain.Customer, error) {
	var stored domain.Customer
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		_, err := uow.Customers().FindByEmail(ctx, sub.Email)
		switch {
		case err == nil:
			return domain.ErrEmailExists.Withf("customer with email %s already exists", sub.Email)
		case !errors.Is(err, domain.ErrCustomerNotFound):
			return fmt.Errorf("find customer %s: %w", sub.Email, err)
		}

		customer, err := sub.ToCustomer(s.now())
		if err != nil {
			return err
		}
		stored, err = uow.Customers().Insert(ctx, customer)
		if err != nil {
			return err
		}
		msg, err := domain.CustomerCreatedMessage(stored)
		return enqueue(ctx, uow, msg, err)
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": stored.ID,
		"email":       stored.Email,
	}).Info("customer registered")
	return stored, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (domain.Customer, error) {
	var customer domain.Customer
	err := s.read(ctx, func(uow domain.UnitOfWork) error {
		var err error
		customer, err = uow.Customers().FindByID(ctx, id)
		return err
	})
	return customer, err
}

func (s *CustomerService) List(ctx context.Context, page domain.Page) ([]domain.Customer, error) {
	page = domain.NewPage(page.Number, page.Size)

	var customers []domain.Customer
	err := s.read(ctx, func(uow domain.UnitOfWork) error {
		var err error
		customers, err = uow.Customers().ListPage(ctx, page)
		return err
	})
	return customers, err
}

// AddAddress добавляет адрес, которого ещё нет у клиента.
func (s *CustomerService) AddAddress(ctx context.Context, customerID int64, sub domain.AddressSubmission) (domain.Address, error) {
	address := sub.ToAddress()
	if err := domain.ValidateStruct(address); err != nil {
		return domain.Address{}, domain.ErrInvalidAddress.Withf("address is invalid: %v", err)
	}

	var stored domain.Address
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		customer, err := uow.Customers().FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		for _, existing := range customer.Addresses {
			if existing.SameLocation(address) {
				return domain.ErrDuplicateAddress.Withf("customer %d already has this address", customerID)
			}
		}
		stored, err = uow.Customers().AddAddress(ctx, customerID, address)
		return err
	})
	if err != nil {
		return domain.Address{}, err
	}
	return stored, nil
}

// RemoveAddress удаляет адрес. Последний адрес клиента удалить нельзя.
func (s *CustomerService) RemoveAddress(ctx context.Context, customerID, addressID int64) error {
	return s.write(ctx, func(uow domain.UnitOfWork) error {
		customer, err := uow.Customers().FindByID(ctx, customerID)
		if err != nil {
			return err
		}

		found := false
		for _, a := range customer.Addresses {
			if a.ID == addressID {
				found = true
				break
			}
		}
		if !found {
			return domain.ErrAddressNotFound.Withf("address %d not found for customer %d", addressID, customerID)
		}
		if len(customer.Addresses) == 1 {
			return domain.ErrLastAddress.Withf("address %d is the last address of customer %d", addressID, customerID)
		}
		return uow.Customers().DeleteAddress(ctx, customerID, addressID)
	})
}

// Update заменяет имя, фамилию, email и дату рождения клиента. Адреса из
// заявки не используются: они меняются через AddAddress и RemoveAddress.
func (s *CustomerService) Update(ctx context.Context, id int64, sub domain.CustomerSubmission) (domain.Customer, error) {
	var updated domain.Customer
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		current, err := uow.Customers().FindByID(ctx, id)
		if err != nil {
			return err
		}

		holder, err := uow.Customers().FindByEmail(ctx, sub.Email)
		switch {
		case err == nil && holder.ID != id:
			return domain.ErrEmailExists.Withf("customer with email %s already exists", sub.Email)
		case err != nil && !errors.Is(err, domain.ErrCustomerNotFound):
			return fmt.Errorf("find customer %s: %w", sub.Email, err)
		}

		candidate, err := domain.NewCustomer(sub.FirstName, sub.LastName, sub.Email, sub.DateOfBirth.Time, current.Addresses, s.now())
		if err != nil {
			return err
		}
		updated, err = uow.Customers().Update(ctx, id, candidate)
		if err != nil {
			return err
		}
		msg, err := domain.CustomerUpdatedMessage(updated)
		return enqueue(ctx, uow, msg, err)
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": updated.ID,
		"email":       updated.Email,
	}).Info("customer updated")
	return updated, nil
}

// Delete удаляет клиента без заказов вместе с адресами.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	err := s.write(ctx, func(uow domain.UnitOfWork) error {
		return uow.Customers().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}
