package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranaconnect/kiranaconnect-backend/api/middleware"
	productsvc "github.com/kiranaconnect/kiranaconnect-backend/internal/products"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

type stubProductService struct {
	listParams []productsvc.ListParams
	created    *productsvc.CreateProductRequest
	getErr     error
}

func (s *stubProductService) List(_ context.Context, params productsvc.ListParams) ([]productsvc.ProductSummaryDTO, error) {
	s.listParams = append(s.listParams, params)
	return []productsvc.ProductSummaryDTO{}, nil
}

func (s *stubProductService) Get(_ context.Context, id uuid.UUID) (*productsvc.ProductDetailDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &productsvc.ProductDetailDTO{Product: storage.Product{ID: id, Name: "Basmati Rice"}}, nil
}

func (s *stubProductService) Create(_ context.Context, req productsvc.CreateProductRequest) (*productsvc.ProductDetailDTO, error) {
	s.created = &req
	return &productsvc.ProductDetailDTO{Product: storage.Product{ID: uuid.New(), Name: req.Name}}, nil
}

func (s *stubProductService) Update(_ context.Context, id uuid.UUID, _ productsvc.UpdateProductRequest) (*productsvc.ProductDetailDTO, error) {
	return &productsvc.ProductDetailDTO{Product: storage.Product{ID: id}}, nil
}

func (s *stubProductService) Delete(context.Context, uuid.UUID) error {
	return nil
}

func (s *stubProductService) AddVariant(_ context.Context, _ uuid.UUID, req productsvc.VariantRequest) (*storage.Variant, error) {
	return &storage.Variant{ID: uuid.New(), Label: req.Label, Unit: req.Unit, Price: req.Price}, nil
}

func productRouter(svc productsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/products", ProductList(svc, nil))
	r.Get("/api/products/{productId}", ProductDetail(svc, nil))
	r.Post("/api/products", ProductCreate(svc, nil))
	r.Delete("/api/products/{productId}", ProductDelete(svc, nil))
	r.Post("/api/products/{productId}/variants", ProductAddVariant(svc, nil))
	return r
}

func TestProductListDefaultsAudienceFromRole(t *testing.T) {
	svc := &stubProductService{}
	ctx := middleware.WithRole(context.Background(), string(enums.UserRoleVendor))
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=Grains", nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	productRouter(svc).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, svc.listParams, 1)
	assert.Equal(t, productsvc.ListParams{Category: "Grains", Audience: enums.UserRoleVendor}, svc.listParams[0])
}

func TestProductListAdminSeesAllAudiences(t *testing.T) {
	svc := &stubProductService{}
	ctx := middleware.WithRole(context.Background(), string(enums.UserRoleAdmin))
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil).WithContext(ctx)
	productRouter(svc).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, svc.listParams, 1)
	assert.Empty(t, svc.listParams[0].Audience)
}

func TestProductListExplicitAudienceWins(t *testing.T) {
	svc := &stubProductService{}
	ctx := middleware.WithRole(context.Background(), string(enums.UserRoleVendor))
	req := httptest.NewRequest(http.MethodGet, "/api/products?audience=retail_user", nil).WithContext(ctx)
	productRouter(svc).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, svc.listParams, 1)
	assert.Equal(t, enums.UserRoleRetail, svc.listParams[0].Audience)
}

func TestProductListRejectsUnknownAudience(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?audience=wholesaler", nil)
	resp := httptest.NewRecorder()
	productRouter(svc).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, svc.listParams)
}

func TestProductDetailValidatesID(t *testing.T) {
	resp := httptest.NewRecorder()
	productRouter(&stubProductService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProductDetailNotFound(t *testing.T) {
	svc := &stubProductService{getErr: pkgerrors.Wrap(pkgerrors.CodeNotFound, errors.New("missing"), "product not found")}
	resp := httptest.NewRecorder()
	productRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProductCreateReturnsCreated(t *testing.T) {
	svc := &stubProductService{}
	body := `{"name":"Toor Dal","category":"Pulses","stock":100,"variants":[{"label":"1 kg","price":"120","unit":"kg"}]}`
	resp := httptest.NewRecorder()
	productRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Toor Dal", svc.created.Name)
	require.Len(t, svc.created.Variants, 1)
	assert.Equal(t, "120", svc.created.Variants[0].Price.String())
}

func TestProductCreateRequiresName(t *testing.T) {
	svc := &stubProductService{}
	resp := httptest.NewRecorder()
	productRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"category":"Pulses"}`)))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.created)
}

func TestProductDeleteReturnsMessage(t *testing.T) {
	resp := httptest.NewRecorder()
	productRouter(&stubProductService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/products/"+uuid.NewString(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Product deleted successfully")
}

func TestProductAddVariantReturnsCreated(t *testing.T) {
	body := `{"label":"25 kg","price":"2400","bulkPrice":"2300","minBulkQuantity":4,"unit":"bag"}`
	resp := httptest.NewRecorder()
	productRouter(&stubProductService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/products/"+uuid.NewString()+"/variants", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "25 kg")
}
