package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"furniture-service/internal/designer"
	"furniture-service/internal/model"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/realtime"
	"furniture-service/pkg/storage"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing defaults and bounds
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"price":     "price",
	"title":     "title",
	"rating":    "rating",
}

// ProductNotifier is told about catalog changes
type ProductNotifier interface {
	NotifyProductChange(ev realtime.ProductEvent)
}

// ProductHandler serves /api/products
type ProductHandler struct {
	db          *gorm.DB
	store       storage.Store
	notifier    ProductNotifier
	maxFileSize int64
}

// NewProductHandler creates the product handler. notifier may be nil.
func NewProductHandler(db *gorm.DB, store storage.Store, notifier ProductNotifier, maxFileSize int64) *ProductHandler {
	return &ProductHandler{db: db, store: store, notifier: notifier, maxFileSize: maxFileSize}
}

// productInput holds the fields a create or update request sets
type productInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Price       *float64             `json:"price"`
	Category    *string              `json:"category"`
	Rating      *float64             `json:"rating"`
	Thumbnail   *string              `json:"thumbnail"`
	Images      *[]string            `json:"images"`
	ModelURL    *string              `json:"modelUrl"`
	Dimensions  *designer.Dimensions `json:"dimensions"`
	Materials   *[]string            `json:"materials"`
	Colors      *[]string            `json:"colors"`
	InStock     *bool                `json:"inStock"`
	Featured    *bool                `json:"featured"`
}

func (in *productInput) complete() bool {
	return in.Title != nil && *in.Title != "" &&
		in.Description != nil && *in.Description != "" &&
		in.Price != nil &&
		in.Category != nil && *in.Category != "" &&
		in.Thumbnail != nil && *in.Thumbnail != "" &&
		in.ModelURL != nil && *in.ModelURL != "" &&
		in.Dimensions != nil
}

func (in *productInput) apply(p *model.Product) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.Thumbnail != nil {
		p.Thumbnail = *in.Thumbnail
	}
	if in.Images != nil {
		p.Images = nonNil(*in.Images)
	}
	if in.ModelURL != nil {
		p.ModelURL = *in.ModelURL
	}
	if in.Dimensions != nil {
		p.Dimensions = datatypes.NewJSONType(*in.Dimensions)
	}
	if in.Materials != nil {
		p.Materials = nonNil(*in.Materials)
	}
	if in.Colors != nil {
		p.Colors = nonNil(*in.Colors)
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// likeEscaper makes search input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListProducts returns a filtered, sorted page of the catalog
func (h *ProductHandler) ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	column, ok := sortColumns[c.QueryParam("sort")]
	if !ok {
		column = sortColumns["createdAt"]
	}
	direction := "DESC"
	if strings.EqualFold(c.QueryParam("order"), "asc") {
		direction = "ASC"
	}

	query := h.db.WithContext(c.Request().Context()).Model(&model.Product{})
	if category := c.QueryParam("category"); category != "" && category != "All" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`, like, like, like)
	}
	for param, col := range map[string]string{"featured": "featured", "inStock": "in_stock"} {
		if raw := c.QueryParam(param); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fail(c, http.StatusBadRequest, "Invalid "+param+" filter", nil)
			}
			query = query.Where(col+" = ?", v)
		}
	}

	done := prometheus.TrackDBOperation("query")
	defer done(time.Now())

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Error("Failed to count products", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to fetch products", err)
	}

	products := []model.Product{}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if int64(page-1) >= int64(totalPages) {
		return respond(c, http.StatusOK, echo.Map{
			"count":       0,
			"total":       total,
			"totalPages":  totalPages,
			"currentPage": page,
			"products":    products,
		})
	}
	err := query.Session(&gorm.Session{}).
		Order(column + " " + direction).
		Order("id " + direction).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to fetch products", err)
	}

	log.Debug("Products retrieved", zap.Int("count", len(products)), zap.Int64("total", total))
	return respond(c, http.StatusOK, echo.Map{
		"count":       len(products),
		"total":       total,
		"totalPages":  totalPages,
		"currentPage": page,
		"products":    products,
	})
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(c echo.Context) error {
	product, err := h.find(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{"product": product})
}

func (h *ProductHandler) find(c echo.Context) (*model.Product, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid product id")
	}

	done := prometheus.TrackDBOperation("query")
	var product model.Product
	err := h.db.WithContext(c.Request().Context()).First(&product, id).Error
	done(time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to load product", zap.Uint("product_id", id), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch product").SetInternal(err)
	}
	return &product, nil
}

// CreateProduct adds a product from a JSON or multipart body
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	in, stored, err := h.readInput(c)
	if err != nil {
		h.discard(c, stored)
		return failWith(c, err, "Failed to create product")
	}
	if !in.complete() {
		h.discard(c, stored)
		return fail(c, http.StatusBadRequest, "Please provide all required fields", nil)
	}

	product := model.Product{
		Images:    []string{},
		Materials: []string{},
		Colors:    []string{},
		InStock:   true,
	}
	in.apply(&product)
	if err := product.Validate(); err != nil {
		h.discard(c, stored)
		return failWith(c, err, "Failed to create product")
	}

	done := prometheus.TrackDBOperation("insert")
	err = h.db.WithContext(c.Request().Context()).Create(&product).Error
	done(time.Now())
	if err != nil {
		log.Error("Failed to create product", zap.Error(err))
		h.discard(c, stored)
		return fail(c, http.StatusInternalServerError, "Failed to create product", err)
	}

	prometheus.RecordProductOperation("create")
	h.notify(realtime.ProductEvent{Action: "create", Message: "New product added", ProductID: product.ID})
	log.Info("Product created", zap.Uint("product_id", product.ID), zap.String("title", product.Title))
	return respond(c, http.StatusCreated, echo.Map{"product": product})
}

// UpdateProduct applies a partial update
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	product, err := h.find(c)
	if err != nil {
		return err
	}
	before := product.MediaURLs()

	in, stored, err := h.readInput(c)
	if err != nil {
		h.discard(c, stored)
		return failWith(c, err, "Failed to update product")
	}
	in.apply(product)
	if err := product.Validate(); err != nil {
		h.discard(c, stored)
		return failWith(c, err, "Failed to update product")
	}

	done := prometheus.TrackDBOperation("update")
	err = h.db.WithContext(c.Request().Context()).Save(product).Error
	done(time.Now())
	if err != nil {
		log.Error("Failed to update product", zap.Uint("product_id", product.ID), zap.Error(err))
		h.discard(c, stored)
		return fail(c, http.StatusInternalServerError, "Failed to update product", err)
	}

	// files the product no longer references
	h.discard(c, unreferenced(before, product.MediaURLs()))

	prometheus.RecordProductOperation("update")
	h.notify(realtime.ProductEvent{Action: "update", Message: "Product updated successfully", ProductID: product.ID})
	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return respond(c, http.StatusOK, echo.Map{"product": product})
}

// DeleteProduct removes a product and, best-effort, its media
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)

	product, err := h.find(c)
	if err != nil {
		return err
	}

	done := prometheus.TrackDBOperation("delete")
	err = h.db.WithContext(c.Request().Context()).Delete(product).Error
	done(time.Now())
	if err != nil {
		log.Error("Failed to delete product", zap.Uint("product_id", product.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to delete product", err)
	}
	h.discard(c, product.MediaURLs())

	prometheus.RecordProductOperation("delete")
	h.notify(realtime.ProductEvent{Action: "delete", Message: "Product deleted successfully", ProductID: product.ID})
	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return respond(c, http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

func (h *ProductHandler) notify(ev realtime.ProductEvent) {
	if h.notifier != nil {
		h.notifier.NotifyProductChange(ev)
	}
}

// discard deletes stored media, logging failures
func (h *ProductHandler) discard(c echo.Context, urls []string) {
	if h.store == nil || len(urls) == 0 {
		return
	}
	log := logger.FromContext(c)
	// the request may already be cancelled; cleanup should still run
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), 30*time.Second)
	defer cancel()
	for _, u := range urls {
		if err := h.store.Delete(ctx, u); err != nil {
			log.Warn("Failed to delete media", zap.String("url", u), zap.Error(err))
		}
	}
}

func unreferenced(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, u := range after {
		keep[u] = true
	}
	var out []string
	for _, u := range before {
		if !keep[u] {
			out = append(out, u)
		}
	}
	return out
}

// readInput decodes a JSON or multipart body. For multipart bodies the
// uploaded files are stored and their URLs returned so the caller can
// delete them if the request fails later.
func (h *ProductHandler) readInput(c echo.Context) (*productInput, []string, error) {
	in := &productInput{}
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		if err := json.NewDecoder(c.Request().Body).Decode(in); err != nil {
			return nil, nil, &model.ValidationError{Field: "body", Message: "Invalid request body"}
		}
		return in, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, &model.ValidationError{Field: "body", Message: "Upload error: " + err.Error()}
	}
	if err := parseFormFields(form.Value, in); err != nil {
		return nil, nil, err
	}

	for field, files := range form.File {
		limit, known := storage.FieldLimits[field]
		if !known || len(files) > limit {
			return nil, nil, &model.ValidationError{Field: field, Message: "Upload error: Unexpected field"}
		}
		for _, fh := range files {
			if !storage.Accept(fh.Filename, fh.Header.Get(echo.HeaderContentType)) {
				return nil, nil, storage.ErrUnsupportedType
			}
			if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
				return nil, nil, storage.ErrFileTooLarge
			}
		}
	}
	if h.store == nil {
		if len(form.File) > 0 {
			return nil, nil, errors.New("media storage is not configured")
		}
		return in, nil, nil
	}

	var stored []string
	save := func(field string) ([]string, error) {
		var urls []string
		kind := storage.KindForField(field)
		for _, fh := range form.File[field] {
			url, err := storage.SaveFile(c.Request().Context(), h.store, kind, fh, h.maxFileSize)
			if err != nil {
				return urls, err
			}
			prometheus.RecordUpload(string(kind), fh.Size)
			urls = append(urls, url)
		}
		return urls, nil
	}

	for _, field := range []string{storage.FieldThumbnail, storage.FieldImages, storage.FieldModel} {
		urls, err := save(field)
		stored = append(stored, urls...)
		if err != nil {
			return nil, stored, err
		}
		if len(urls) == 0 {
			continue
		}
		switch field {
		case storage.FieldThumbnail:
			in.Thumbnail = &urls[0]
		case storage.FieldImages:
			in.Images = &urls
		case storage.FieldModel:
			in.ModelURL = &urls[0]
		}
	}
	return in, stored, nil
}

// parseFormFields fills in from multipart text fields. Structured fields
// arrive JSON encoded.
func parseFormFields(values map[string][]string, in *productInput) error {
	get := func(key string) (string, bool) {
		if v, ok := values[key]; ok && len(v) > 0 {
			return v[0], true
		}
		return "", false
	}
	text := func(key string, dst **string) {
		if v, ok := get(key); ok {
			*dst = &v
		}
	}
	number := func(key string, dst **float64) error {
		v, ok := get(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &model.ValidationError{Field: key, Message: "Invalid " + key}
		}
		*dst = &f
		return nil
	}
	boolean := func(key string, dst **bool) error {
		v, ok := get(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &model.ValidationError{Field: key, Message: "Invalid " + key}
		}
		*dst = &b
		return nil
	}
	list := func(key string, dst **[]string) error {
		v, ok := get(key)
		if !ok || v == "" {
			return nil
		}
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return &model.ValidationError{Field: key, Message: "Invalid " + key + " format"}
		}
		*dst = &out
		return nil
	}

	text("title", &in.Title)
	text("description", &in.Description)
	text("category", &in.Category)
	text("thumbnail", &in.Thumbnail)
	text("modelUrl", &in.ModelURL)

	if v, ok := get("dimensions"); ok && v != "" {
		var d designer.Dimensions
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			return &model.ValidationError{Field: "dimensions", Message: "Invalid dimensions format"}
		}
		in.Dimensions = &d
	}

	for _, step := range []error{
		number("price", &in.Price),
		number("rating", &in.Rating),
		boolean("inStock", &in.InStock),
		boolean("featured", &in.Featured),
		list("materials", &in.Materials),
		list("colors", &in.Colors),
		list("images", &in.Images),
	} {
		if step != nil {
			return step
		}
	}
	return nil
}

