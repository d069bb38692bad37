package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

type customerRepository struct {
	uow *unitOfWork
}

func (r *customerRepository) FindByID(_ context.Context, id int64) (domain.Customer, error) {
	if err := r.uow.check(); err != nil {
		return domain.Customer{}, err
	}
	c, ok := r.uow.st.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return copyCustomer(c), nil
}

func (r *customerRepository) FindByEmail(_ context.Context, email string) (domain.Customer, error) {
	if err := r.uow.check(); err != nil {
		return domain.Customer{}, err
	}
	for _, c := range r.uow.st.customers {
		if c.Email == email {
			return copyCustomer(c), nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// Insert присваивает идентификаторы клиенту и его адресам.
func (r *customerRepository) Insert(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	if err := r.uow.check(); err != nil {
		return domain.Customer{}, err
	}
	st := r.uow.st
	if r.emailTaken(customer.Email, 0) {
		return domain.Customer{}, domain.ErrEmailExists.Withf("customer with email %s already exists", customer.Email)
	}

	st.nextCustomerID++
	customer.ID = st.nextCustomerID
	addresses := make([]domain.Address, 0, len(customer.Addresses))
	for _, addr := range customer.Addresses {
		st.nextAddressID++
		addr.ID = st.nextAddressID
		addr.CustomerID = customer.ID
		addresses = append(addresses, addr)
	}
	customer.Addresses = addresses
	st.customers[customer.ID] = customer
	return copyCustomer(customer), nil
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

func (r *customerRepository) Update(_ context.Context, id int64, customer domain.Customer) (domain.Customer, error) {
	if err := r.uow.check(); err != nil {
		return domain.Customer{}, err
	}
	current, ok := r.uow.st.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if r.emailTaken(customer.Email, id) {
		return domain.Customer{}, domain.ErrEmailExists.Withf("customer with email %s already exists", customer.Email)
	}

	current.FirstName = customer.FirstName
	current.LastName = customer.LastName
	current.Email = customer.Email
	current.DateOfBirth = customer.DateOfBirth
	r.uow.st.customers[id] = current
	return copyCustomer(current), nil
}

func (r *customerRepository) Delete(_ context.Context, id int64) error {
	if err := r.uow.check(); err != nil {
		return err
	}
	if _, ok := r.uow.st.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	for _, o := range r.uow.st.orders {
		if o.CustomerID == id {
			return domain.ErrCustomerHasOrders.Withf("customer %d is referenced by order %d", id, o.Number)
		}
	}
	delete(r.uow.st.customers, id)
	return nil
}

func (r *customerRepository) ListPage(_ context.Context, page domain.Page) ([]domain.Customer, error) {
	if err := r.uow.check(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(r.uow.st.customers))
	for id := range r.uow.st.customers {
		ids = append(ids, id)
	}
	ids = pageIDs(ids, page)

	out := make([]domain.Customer, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyCustomer(r.uow.st.customers[id]))
	}
	return out, nil
}

func (r *customerRepository) AddAddress(_ context.Context, customerID int64, address domain.Address) (domain.Address, error) {
	if err := r.uow.check(); err != nil {
		return domain.Address{}, err
	}
	c, ok := r.uow.st.customers[customerID]
	if !ok {
		return domain.Address{}, domain.ErrCustomerNotFound
	}
	r.uow.st.nextAddressID++
	address.ID = r.uow.st.nextAddressID
	address.CustomerID = customerID
	c.Addresses = append(append([]domain.Address(nil), c.Addresses...), address)
	r.uow.st.customers[customerID] = c
	return address, nil
}

func (r *customerRepository) DeleteAddress(_ context.Context, customerID, addressID int64) error {
	if err := r.uow.check(); err != nil {
		return err
	}
	c, ok := r.uow.st.customers[customerID]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	kept := make([]domain.Address, 0, len(c.Addresses))
	for _, addr := range c.Addresses {
		if addr.ID != addressID {
			kept = append(kept, addr)
		}
	}
	if len(kept) == len(c.Addresses) {
		return domain.ErrAddressNotFound
	}
	c.Addresses = kept
	r.uow.st.customers[customerID] = c
	return nil
}

func (r *customerRepository) emailTaken(email string, exceptID int64) bool {
	for id, c := range r.uow.st.customers {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}

// pageIDs сортирует идентификаторы и вырезает нужную страницу.
func pageIDs(ids []int64, page domain.Page) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	from := page.Offset()
	if from >= len(ids) {
		return nil
	}
	to := from + page.Size
	if to > len(ids) {
		to = len(ids)
	}
	return ids[from:to]
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
