package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/catalog"
	"github.com/petermazzocco/go-catalog-api/internal/policy"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/store/storetest"
	"github.com/petermazzocco/go-catalog-api/models"
)

type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) PublishJSON(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *recorder) Close() error { return nil }

func uptr(v uint) *uint { return &v }

func newService(t *testing.T, opts catalog.Options) (*catalog.Service, *gorm.DB, *recorder) {
	t.Helper()
	db := storetest.Open(t)
	rec := &recorder{}
	svc := catalog.New(db, auth.NewIssuer("test-secret", time.Hour), rec, nil, opts)
	return svc, db, rec
}

func productReq(t *testing.T, body string) catalog.ProductRequest {
	t.Helper()
	var req catalog.ProductRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func actor(id uint, role models.Role) policy.Actor {
	return policy.Actor{ID: id, Email: fmt.Sprintf("user%d@example.com", id), Role: role}
}

func imageList(n int) string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/%d.png", i)
	}
	b, _ := json.Marshal(urls)
	return string(b)
}

func TestCreateProduct_OwnedByCaller(t *testing.T) {
	svc, db, rec := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")

	v, err := svc.CreateProduct(t.Context(), actor(7, models.RoleAdmin),
		productReq(t, `{"nombre":"Widget","precio":9.99}`))
	require.NoError(t, err)
	require.NotNil(t, v.OwnerID)
	assert.Equal(t, uint(7), *v.OwnerID)
	assert.Equal(t, 9.99, v.Price)
	assert.Equal(t, 0, v.Stock)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"usuario_id":7`)
	assert.Contains(t, string(b), `"imagenes":[]`)
	assert.Equal(t, []string{"product.created"}, rec.keys)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")

	tests := []struct {
		name string
		body string
	}{
		{"price not numeric", `{"nombre":"Widget","precio":"abc"}`},
		{"price missing", `{"nombre":"Widget"}`},
		{"name missing", `{"precio":1}`},
		{"name blank", `{"nombre":"  ","precio":1}`},
		{"negative price", `{"nombre":"Widget","precio":-1}`},
		{"negative stock", `{"nombre":"Widget","precio":1,"stock":-3}`},
		{"bad image url", `{"nombre":"Widget","precio":1,"imagen_url":"ftp://x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(t.Context(), actor(7, models.RoleAdmin), productReq(t, tt.body))
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateProduct_TruncatesImagesToEight(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")

	v, err := svc.CreateProduct(t.Context(), actor(7, models.RoleAdmin),
		productReq(t, `{"nombre":"Widget","precio":"12.50","stock":"abc","imagenes":`+imageList(9)+`}`))
	require.NoError(t, err)
	assert.Len(t, v.Images, models.MaxProductImages)
	assert.Equal(t, "https://cdn.example.com/0.png", v.Images[0])
	assert.Equal(t, 12.5, v.Price)
	assert.Equal(t, 0, v.Stock)
}

func TestUpdateProduct_ImagesRoundTrip(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	admin := actor(7, models.RoleAdmin)

	created, err := svc.CreateProduct(t.Context(), admin, productReq(t,
		`{"nombre":"Widget","precio":1,"imagenes":["https://x.io/a","https://x.io/b","https://x.io/c"]}`))
	require.NoError(t, err)

	got, err := svc.GetProduct(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.io/a", "https://x.io/b", "https://x.io/c"}, got.Images)

	_, err = svc.UpdateProduct(t.Context(), admin, created.ID,
		productReq(t, `{"imagenes":["https://x.io/d","https://x.io/e"]}`))
	require.NoError(t, err)

	got, err = svc.GetProduct(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.io/d", "https://x.io/e"}, got.Images)
	assert.Equal(t, "Widget", got.Name)
}

func TestUpdateProduct_PartialAndSafeParse(t *testing.T) {
	svc, db, rec := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	p := storetest.Product(t, db, "Lamp", uptr(7), "https://x.io/a")

	v, err := svc.UpdateProduct(t.Context(), actor(7, models.RoleAdmin), p.ID,
		productReq(t, `{"precio":"abc","descripcion":"bright"}`))
	require.NoError(t, err)
	assert.Equal(t, "Lamp", v.Name)
	assert.Equal(t, 0.0, v.Price)
	assert.Equal(t, "bright", v.Description)
	assert.Equal(t, 1, v.Stock)
	assert.Equal(t, []string{"https://x.io/a"}, v.Images)
	assert.Equal(t, []string{"product.updated"}, rec.keys)
}

func TestProductMutation_AdminOnForeignProduct(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	storetest.User(t, db, 8, models.RoleAdmin, true, "")
	p := storetest.Product(t, db, "Lamp", uptr(8))
	intruder := actor(7, models.RoleAdmin)

	_, err := svc.UpdateProduct(t.Context(), intruder, p.ID, productReq(t, `{"nombre":"Hacked"}`))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	err = svc.DeleteProduct(t.Context(), intruder, p.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := svc.GetProduct(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)

	// The owner role may mutate anything.
	_, err = svc.UpdateProduct(t.Context(), actor(1, models.RoleOwner), p.ID, productReq(t, `{"nombre":"Desk lamp"}`))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(t.Context(), actor(1, models.RoleOwner), p.ID))

	_, err = svc.GetProduct(t.Context(), p.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestProductMutation_NotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newService(t, catalog.Options{})

	_, err := svc.UpdateProduct(t.Context(), actor(7, models.RoleAdmin), 404, productReq(t, `{"nombre":"x"}`))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListForActor(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 1, models.RoleOwner, true, "")
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	storetest.User(t, db, 8, models.RoleAdmin, false, "")
	storetest.Product(t, db, "mine", uptr(7))
	storetest.Product(t, db, "theirs", uptr(8))
	storetest.Product(t, db, "nobody", nil)

	page := store.NewPage(0, 0)

	mine, err := svc.ListForActor(t.Context(), actor(7, models.RoleAdmin), page)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Name)

	all, err := svc.ListForActor(t.Context(), actor(1, models.RoleOwner), page)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	public, err := svc.ListPublic(t.Context(), page)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "mine", public[0].Name)
	assert.Equal(t, "nobody", public[1].Name)

	_, err = svc.ListForActor(t.Context(), policy.Actor{ID: 9, Role: "guest"}, page)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestViews_PhoneOnlyWhenAuthenticated(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "5491122334455")
	p := storetest.Product(t, db, "Lamp", uptr(7))

	public, err := svc.GetProduct(t.Context(), p.ID)
	require.NoError(t, err)
	b, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "usuario_telefono")
	assert.NotContains(t, string(b), "5491122334455")
	assert.Contains(t, string(b), `"usuario_nombre":"User 7"`)

	list, err := svc.ListPublic(t.Context(), store.NewPage(0, 0))
	require.NoError(t, err)
	b, err = json.Marshal(list)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "usuario_telefono")

	own, err := svc.ListForActor(t.Context(), actor(7, models.RoleAdmin), store.NewPage(0, 0))
	require.NoError(t, err)
	require.Len(t, own, 1)
	b, err = json.Marshal(own[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"usuario_telefono":"5491122334455"`)
}

func TestViews_RebaseLocalhostImages(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{PublicBaseURL: "https://api.example.com"})
	p := storetest.Product(t, db, "Lamp", nil,
		"http://localhost:3001/uploads/a.png", "https://cdn.example.com/b.png")

	v, err := svc.GetProduct(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://api.example.com/uploads/a.png",
		"https://cdn.example.com/b.png",
	}, v.Images)
}

func TestContactLink(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "5491122334455")
	storetest.User(t, db, 8, models.RoleAdmin, false, "5491100000000")
	storetest.User(t, db, 9, models.RoleAdmin, true, "")
	lamp := storetest.Product(t, db, "Lamp", uptr(7))
	hidden := storetest.Product(t, db, "Hidden", uptr(8))
	silent := storetest.Product(t, db, "Silent", uptr(9))

	link := func(id uint, msg *string) (string, error) {
		return svc.ContactLink(t.Context(), catalog.ContactRequest{
			ProductID: json.RawMessage(fmt.Sprint(id)),
			Message:   msg,
		})
	}

	url, err := link(lamp.ID, nil)
	require.NoError(t, err)
	assert.Equal(t,
		"https://wa.me/5491122334455?text=Hola%2C%20me%20interesa%20el%20producto%3A%20Lamp%20-%20%2410.00",
		url)

	custom := "is it available?"
	url, err = link(lamp.ID, &custom)
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/5491122334455?text=is%20it%20available%3F", url)

	url, err = link(hidden.ID, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Empty(t, url)

	_, err = link(silent.ID, nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = link(999, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = link(0, nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

type brokenBroker struct{}

func (brokenBroker) PublishJSON(context.Context, string, any) error {
	return errors.New("channel closed")
}

func (brokenBroker) Close() error { return nil }

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	db := storetest.Open(t)
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	svc := catalog.New(db, auth.NewIssuer("test-secret", time.Hour), brokenBroker{}, nil, catalog.Options{})

	v, err := svc.CreateProduct(t.Context(), actor(7, models.RoleAdmin), productReq(t, `{"nombre":"Widget","precio":1}`))
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
}

func TestCreateProduct_DeletedAccount(t *testing.T) {
	svc, db, rec := newService(t, catalog.Options{})

	_, err := svc.CreateProduct(t.Context(), actor(42, models.RoleAdmin), productReq(t, `{"nombre":"W","precio":1}`))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	assert.Empty(t, rec.keys)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateProduct_BlankImagesDoNotCountTowardsCap(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")

	var urls []string
	require.NoError(t, json.Unmarshal([]byte(imageList(8)), &urls))
	body, err := json.Marshal(map[string]any{"nombre": "Widget", "precio": 1, "imagenes": append([]string{""}, urls...)})
	require.NoError(t, err)

	v, err := svc.CreateProduct(t.Context(), actor(7, models.RoleAdmin), productReq(t, string(body)))
	require.NoError(t, err)
	assert.Equal(t, urls, v.Images)
}

func TestUpdateProduct_EmptyBody(t *testing.T) {
	svc, db, rec := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "")
	p := storetest.Product(t, db, "Lamp", uptr(7), "https://x.io/a")
	admin := actor(7, models.RoleAdmin)

	_, err := svc.UpdateProduct(t.Context(), admin, p.ID, productReq(t, `{}`))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Empty(t, rec.keys)

	// An explicit empty image list is still a change.
	v, err := svc.UpdateProduct(t.Context(), admin, p.ID, productReq(t, `{"imagenes":[]}`))
	require.NoError(t, err)
	assert.Empty(t, v.Images)
}

func TestContactLink_RejectsFractionalProductID(t *testing.T) {
	svc, db, _ := newService(t, catalog.Options{})
	storetest.User(t, db, 7, models.RoleAdmin, true, "5491122334455")
	storetest.Product(t, db, "Lamp", uptr(7))

	_, err := svc.ContactLink(t.Context(), catalog.ContactRequest{ProductID: json.RawMessage(`1.5`)})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = svc.ContactLink(t.Context(), catalog.ContactRequest{ProductID: json.RawMessage(`"1"`)})
	require.NoError(t, err)
}
