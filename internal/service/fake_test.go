package service

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
)

// fakeBackend stands in for the REST client. Errors are injected per method name.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error

	groupID   string
	info      domain.GroupInfo
	members   []domain.Member
	isCreator bool
	products  map[string][]domain.Product
	places    []domain.Place
	lists     []domain.ShoppingList
	cats      []domain.Category
	notes     []domain.Notification

	createdPlace client.CreatePlaceRequest
	createdProd  client.CreateProductRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{errs: map[string]error{}, products: map[string][]domain.Product{}}
}

func (f *fakeBackend) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeBackend) MyGroupID(context.Context) (string, error) {
	if err := f.hit("MyGroupID"); err != nil {
		return "", err
	}
	if f.groupID == "" {
		return "", client.ErrNoGroup
	}
	return f.groupID, nil
}

func (f *fakeBackend) MyGroupInfo(context.Context) (domain.GroupInfo, error) {
	return f.info, f.hit("MyGroupInfo")
}

func (f *fakeBackend) MyGroupProductCount(context.Context) (int, error) {
	return 12, f.hit("MyGroupProductCount")
}

func (f *fakeBackend) MyGroupMemberCount(context.Context) (int, error) {
	f.mu.Lock()
	n := len(f.members)
	f.mu.Unlock()
	return n, f.hit("MyGroupMemberCount")
}

func (f *fakeBackend) MyGroupMembers(context.Context) ([]domain.Member, error) {
	if err := f.hit("MyGroupMembers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.members), nil
}

func (f *fakeBackend) IsGroupCreator(context.Context) (bool, error) {
	f.hit("IsGroupCreator")
	return f.isCreator, nil
}

func (f *fakeBackend) CreateGroup(_ context.Context, req client.CreateGroupRequest) (client.GroupRecord, error) {
	if err := f.hit("CreateGroup"); err != nil {
		return client.GroupRecord{}, err
	}
	f.groupID = "g-new"
	f.info = domain.GroupInfo{Name: req.Name, Description: req.Description}
	return client.GroupRecord{ID: f.groupID, Name: req.Name}, nil
}

func (f *fakeBackend) AddMember(_ context.Context, _, username string) error {
	if err := f.hit("AddMember"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = append(f.members, domain.Member{Username: username})
	return nil
}

func (f *fakeBackend) RemoveMember(_ context.Context, _, username string) error {
	if err := f.hit("RemoveMember"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = slices.DeleteFunc(f.members, func(m domain.Member) bool { return m.Username == username })
	return nil
}

func (f *fakeBackend) DeleteGroup(context.Context, string) error {
	return f.hit("DeleteGroup")
}

func (f *fakeBackend) PlacesByGroup(context.Context, string) ([]domain.Place, error) {
	if err := f.hit("PlacesByGroup"); err != nil {
		return nil, err
	}
	return slices.Clone(f.places), nil
}

func (f *fakeBackend) CreatePlace(_ context.Context, req client.CreatePlaceRequest) (domain.Place, error) {
	if err := f.hit("CreatePlace"); err != nil {
		return domain.Place{}, err
	}
	f.createdPlace = req
	p := domain.Place{ID: "p-" + req.Name, Name: req.Name, GroupID: req.GroupID, CreatedBy: req.UserID}
	f.places = append(f.places, p)
	return p, nil
}

func (f *fakeBackend) Place(_ context.Context, id string) (domain.Place, error) {
	if err := f.hit("Place"); err != nil {
		return domain.Place{}, err
	}
	for _, p := range f.places {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Place{}, &client.APIError{StatusCode: 404, Message: "could not load the place"}
}

func (f *fakeBackend) DeletePlace(_ context.Context, id string) error {
	if err := f.hit("DeletePlace"); err != nil {
		return err
	}
	f.places = slices.DeleteFunc(f.places, func(p domain.Place) bool { return p.ID == id })
	return nil
}

func (f *fakeBackend) PlaceProducts(_ context.Context, placeID string) ([]domain.Product, error) {
	if err := f.hit("PlaceProducts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.products[placeID]), nil
}

func (f *fakeBackend) CreateProduct(_ context.Context, placeID string, req client.CreateProductRequest) (domain.Product, error) {
	if err := f.hit("CreateProduct"); err != nil {
		return domain.Product{}, err
	}
	f.createdProd = req
	p := domain.Product{ID: "pr-" + req.Name, Name: req.Name, Quantity: req.Quantity, MinQuantity: req.MinQuantity}
	f.products[placeID] = append(f.products[placeID], p)
	return p, nil
}

func (f *fakeBackend) Products(context.Context) ([]domain.Product, error) {
	if err := f.hit("Products"); err != nil {
		return nil, err
	}
	var all []domain.Product
	for _, ps := range f.products {
		all = append(all, ps...)
	}
	return all, nil
}

func (f *fakeBackend) ProductByName(_ context.Context, name string) (domain.Product, error) {
	if err := f.hit("ProductByName"); err != nil {
		return domain.Product{}, err
	}
	for _, ps := range f.products {
		for _, p := range ps {
			if strings.EqualFold(p.Name, name) {
				return p, nil
			}
		}
	}
	return domain.Product{}, &client.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) DecrementProduct(_ context.Context, id string) (string, error) {
	if err := f.hit("DecrementProduct"); err != nil {
		return "", err
	}
	for place, ps := range f.products {
		for i := range ps {
			if ps[i].ID == id {
				f.products[place][i].Quantity--
			}
		}
	}
	return "Cantidad reducida", nil
}

func (f *fakeBackend) DeleteProduct(_ context.Context, id string) (string, error) {
	if err := f.hit("DeleteProduct"); err != nil {
		return "", err
	}
	for place, ps := range f.products {
		f.products[place] = slices.DeleteFunc(ps, func(p domain.Product) bool { return p.ID == id })
	}
	return "Producto eliminado", nil
}

func (f *fakeBackend) AssignCategory(_ context.Context, id, category string) (domain.Product, error) {
	if err := f.hit("AssignCategory"); err != nil {
		return domain.Product{}, err
	}
	for place, ps := range f.products {
		for i := range ps {
			if ps[i].ID == id {
				f.products[place][i].Category = &domain.CategoryRef{Name: category}
				return f.products[place][i], nil
			}
		}
	}
	return domain.Product{}, &client.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) ListsByGroup(context.Context, string) ([]domain.ShoppingList, error) {
	if err := f.hit("ListsByGroup"); err != nil {
		return nil, err
	}
	return slices.Clone(f.lists), nil
}

func (f *fakeBackend) List(_ context.Context, id string) (domain.ShoppingList, error) {
	if err := f.hit("List"); err != nil {
		return domain.ShoppingList{}, err
	}
	for _, l := range f.lists {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.ShoppingList{}, &client.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) CreateList(_ context.Context, req client.CreateListRequest) (domain.ShoppingList, error) {
	if err := f.hit("CreateList"); err != nil {
		return domain.ShoppingList{}, err
	}
	l := domain.ShoppingList{ID: "l-" + req.Name, Name: req.Name, Description: req.Description}
	f.lists = append(f.lists, l)
	return l, nil
}

func (f *fakeBackend) DeleteList(_ context.Context, id string) error {
	if err := f.hit("DeleteList"); err != nil {
		return err
	}
	f.lists = slices.DeleteFunc(f.lists, func(l domain.ShoppingList) bool { return l.ID == id })
	return nil
}

func (f *fakeBackend) mutateList(id string, fn func(*domain.ShoppingList)) (domain.ShoppingList, error) {
	for i := range f.lists {
		if f.lists[i].ID == id {
			fn(&f.lists[i])
			out := f.lists[i]
			out.Items = slices.Clone(out.Items)
			return out, nil
		}
	}
	return domain.ShoppingList{}, &client.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) AddListItem(_ context.Context, id string, item domain.ListItem) (domain.ShoppingList, error) {
	if err := f.hit("AddListItem"); err != nil {
		return domain.ShoppingList{}, err
	}
	return f.mutateList(id, func(l *domain.ShoppingList) { l.Items = append(l.Items, item) })
}

func (f *fakeBackend) RemoveListItem(_ context.Context, id, name string) (domain.ShoppingList, error) {
	if err := f.hit("RemoveListItem"); err != nil {
		return domain.ShoppingList{}, err
	}
	return f.mutateList(id, func(l *domain.ShoppingList) {
		l.Items = slices.DeleteFunc(l.Items, func(it domain.ListItem) bool { return it.Name == name })
	})
}

func (f *fakeBackend) MarkListItem(_ context.Context, id, name string, purchased bool) (domain.ShoppingList, error) {
	if err := f.hit("MarkListItem"); err != nil {
		return domain.ShoppingList{}, err
	}
	return f.mutateList(id, func(l *domain.ShoppingList) {
		for i := range l.Items {
			if l.Items[i].Name == name {
				l.Items[i].Purchased = purchased
			}
		}
	})
}

func (f *fakeBackend) Categories(context.Context) ([]domain.Category, error) {
	if err := f.hit("Categories"); err != nil {
		return nil, err
	}
	return slices.Clone(f.cats), nil
}

func (f *fakeBackend) CreateCategory(_ context.Context, req client.CreateCategoryRequest) (domain.Category, error) {
	if err := f.hit("CreateCategory"); err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{ID: "c-" + req.Name, Name: req.Name}
	f.cats = append(f.cats, c)
	return c, nil
}

func (f *fakeBackend) DeleteCategory(context.Context, string) error {
	return f.hit("DeleteCategory")
}

func (f *fakeBackend) UnreadNotifications(context.Context) ([]domain.Notification, error) {
	if err := f.hit("UnreadNotifications"); err != nil {
		return nil, err
	}
	return slices.Clone(f.notes), nil
}

func (f *fakeBackend) MarkNotificationRead(context.Context, string) error {
	return f.hit("MarkNotificationRead")
}

func (f *fakeBackend) MarkAllNotificationsRead(context.Context) error {
	return f.hit("MarkAllNotificationsRead")
}

type staticUser domain.User

func (u staticUser) User() domain.User { return domain.User(u) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
