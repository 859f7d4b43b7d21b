package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"furniture-service/internal/designer"
	"furniture-service/internal/middleware"
	"furniture-service/internal/model"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/realtime"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DesignNotifier is told when a saved design changes
type DesignNotifier interface {
	NotifyDesignChange(ev realtime.DesignEvent)
}

// RoomDesignHandler serves /api/room-designs. Every route runs behind
// JWTAuthMiddleware and only the owner may touch a design.
type RoomDesignHandler struct {
	db       *gorm.DB
	notifier DesignNotifier
}

// NewRoomDesignHandler creates the room design handler. notifier may be nil.
func NewRoomDesignHandler(db *gorm.DB, notifier DesignNotifier) *RoomDesignHandler {
	return &RoomDesignHandler{db: db, notifier: notifier}
}

type designInput struct {
	Name       *string                  `json:"name"`
	Items      *[]designer.Placement    `json:"items"`
	WallColors *designer.WallColors     `json:"wallColors"`
	FloorColor *string                  `json:"floorColor"`
	Dimensions *designer.RoomDimensions `json:"dimensions"`
}

// ListDesigns returns the caller's designs, newest first
func (h *RoomDesignHandler) ListDesigns(c echo.Context) error {
	user, _ := middleware.CurrentUser(c)

	done := prometheus.TrackDBOperation("query")
	designs := []model.RoomDesign{}
	err := h.db.WithContext(c.Request().Context()).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&designs).Error
	done(time.Now())
	if err != nil {
		logger.FromContext(c).Error("Failed to list room designs", zap.Uint("user_id", user.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to fetch room designs", err)
	}

	return respond(c, http.StatusOK, echo.Map{"count": len(designs), "data": designs})
}

// CreateDesign saves a new design for the caller
func (h *RoomDesignHandler) CreateDesign(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	var in designInput
	if err := c.Bind(&in); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	if in.Name == nil {
		return fail(c, http.StatusBadRequest, "Please provide a name for your design", nil)
	}
	if in.Items == nil {
		return fail(c, http.StatusBadRequest, "Please provide the design items", nil)
	}

	design := model.RoomDesign{UserID: user.ID}
	if err := h.apply(&design, &in); err != nil {
		return failWith(c, err, "Failed to create room design")
	}

	done := prometheus.TrackDBOperation("insert")
	err := h.db.WithContext(c.Request().Context()).Create(&design).Error
	done(time.Now())
	if err != nil {
		log.Error("Failed to create room design", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to create room design", err)
	}

	h.changed("create", &design)
	log.Info("Room design created", zap.Uint("design_id", design.ID), zap.Int("items", len(design.Items)))
	return respond(c, http.StatusCreated, echo.Map{"data": design})
}

// GetDesign returns one of the caller's designs
func (h *RoomDesignHandler) GetDesign(c echo.Context) error {
	design, err := h.owned(c, "access")
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{"data": design})
}

// UpdateDesign replaces the provided top-level fields
func (h *RoomDesignHandler) UpdateDesign(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	var in designInput
	if err := c.Bind(&in); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	if err := h.apply(design, &in); err != nil {
		return failWith(c, err, "Failed to update room design")
	}
	return h.save(c, design, "update", echo.Map{"data": design})
}

// DeleteDesign removes one of the caller's designs
func (h *RoomDesignHandler) DeleteDesign(c echo.Context) error {
	design, err := h.owned(c, "delete")
	if err != nil {
		return err
	}

	done := prometheus.TrackDBOperation("delete")
	err = h.db.WithContext(c.Request().Context()).Delete(design).Error
	done(time.Now())
	if err != nil {
		logger.FromContext(c).Error("Failed to delete room design", zap.Uint("design_id", design.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to delete room design", err)
	}

	h.changed("delete", design)
	return respond(c, http.StatusOK, echo.Map{"data": echo.Map{}})
}

type addItemRequest struct {
	ProductID uint           `json:"productId"`
	Position  *designer.Vec3 `json:"position"`
	Rotation  *designer.Vec3 `json:"rotation"`
	Color     string         `json:"color"`
	Scale     *float64       `json:"scale"`
}

// AddItem places a catalog product into the design
func (h *RoomDesignHandler) AddItem(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	if req.ProductID == 0 {
		return fail(c, http.StatusBadRequest, "Please provide a productId", nil)
	}

	var product model.Product
	err = h.db.WithContext(c.Request().Context()).First(&product, req.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to fetch product", err)
	}

	canvas, err := design.Canvas()
	if err != nil {
		return failWith(c, err, "Failed to load room design")
	}
	spec := product.PlacementSpec()
	spec.Position = req.Position
	spec.Rotation = req.Rotation
	spec.Color = req.Color
	spec.Scale = req.Scale
	item, err := canvas.Add(spec)
	if err != nil {
		return failWith(c, err, "Failed to add item")
	}
	design.Apply(canvas)

	return h.save(c, design, "add_item", echo.Map{
		"data":           design,
		"item":           item,
		"selectedItemId": canvas.SelectedID(),
	}, http.StatusCreated)
}

type patchItemRequest struct {
	Position     *designer.Vec3 `json:"position"`
	Rotation     *designer.Vec3 `json:"rotation"`
	QuarterTurns *int           `json:"quarterTurns"`
	Color        *string        `json:"color"`
	Scale        *float64       `json:"scale"`
	Move         *struct {
		Axis  string  `json:"axis"`
		Value float64 `json:"value"`
	} `json:"move"`
}

// PatchItem moves, turns, paints or resizes one placed item
func (h *RoomDesignHandler) PatchItem(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	var req patchItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}

	canvas, err := design.Canvas()
	if err != nil {
		return failWith(c, err, "Failed to load room design")
	}

	id := c.Param("itemId")
	item, ok := canvas.Find(id)
	if !ok {
		return failWith(c, designer.ErrItemNotFound, "")
	}

	var steps []func() (designer.Placement, error)
	if req.Position != nil {
		steps = append(steps, func() (designer.Placement, error) { return canvas.SetPosition(id, *req.Position) })
	}
	if req.Move != nil {
		axis, ok := designer.ParseAxis(req.Move.Axis)
		if !ok {
			return fail(c, http.StatusBadRequest, "Invalid axis", nil)
		}
		value := req.Move.Value
		steps = append(steps, func() (designer.Placement, error) { return canvas.Move(id, axis, value) })
	}
	if req.Rotation != nil {
		steps = append(steps, func() (designer.Placement, error) { return canvas.SetRotation(id, *req.Rotation) })
	}
	if req.QuarterTurns != nil {
		steps = append(steps, func() (designer.Placement, error) { return canvas.QuickRotate(id, *req.QuarterTurns) })
	}
	if req.Color != nil {
		steps = append(steps, func() (designer.Placement, error) { return canvas.Recolor(id, *req.Color) })
	}
	if req.Scale != nil {
		steps = append(steps, func() (designer.Placement, error) { return canvas.SetScale(id, *req.Scale) })
	}
	for _, step := range steps {
		if item, err = step(); err != nil {
			return failWith(c, err, "Failed to update item")
		}
	}
	design.Apply(canvas)

	return h.save(c, design, "update_item", echo.Map{"data": design, "item": item})
}

// DeleteItem removes one placed item
func (h *RoomDesignHandler) DeleteItem(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	canvas, err := design.Canvas()
	if err != nil {
		return failWith(c, err, "Failed to load room design")
	}
	if err := canvas.Remove(c.Param("itemId")); err != nil {
		return failWith(c, err, "Failed to remove item")
	}
	design.Apply(canvas)

	return h.save(c, design, "remove_item", echo.Map{"data": design})
}

// SetWallColor paints one wall or, with wall "all", every wall
func (h *RoomDesignHandler) SetWallColor(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	var req struct {
		Wall    string `json:"wall"`
		Color   string `json:"color"`
		Uniform *bool  `json:"uniform"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	wall, err := designer.ParseWall(req.Wall)
	if err != nil {
		return failWith(c, err, "")
	}
	uniform := wall == designer.WallAll
	if req.Uniform != nil {
		uniform = *req.Uniform
	}

	canvas, err := design.Canvas()
	if err != nil {
		return failWith(c, err, "Failed to load room design")
	}
	if err := canvas.SetWallColor(wall, req.Color, uniform); err != nil {
		return failWith(c, err, "Failed to paint wall")
	}
	design.Apply(canvas)

	return h.save(c, design, "paint_wall", echo.Map{"data": design})
}

// SetFloorColor paints the floor
func (h *RoomDesignHandler) SetFloorColor(c echo.Context) error {
	design, err := h.owned(c, "update")
	if err != nil {
		return err
	}

	var req struct {
		Color string `json:"color"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}

	canvas, err := design.Canvas()
	if err != nil {
		return failWith(c, err, "Failed to load room design")
	}
	if err := canvas.SetFloorColor(req.Color); err != nil {
		return failWith(c, err, "Failed to paint floor")
	}
	design.Apply(canvas)

	return h.save(c, design, "paint_floor", echo.Map{"data": design})
}

// WallOpacities reports which wall the 3D view hides for a camera direction
func (h *RoomDesignHandler) WallOpacities(c echo.Context) error {
	if _, err := h.owned(c, "access"); err != nil {
		return err
	}

	var dir designer.Vec3
	for i, key := range []string{"dx", "dy", "dz"} {
		raw := c.QueryParam(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid camera direction", nil)
		}
		dir[i] = v
	}

	hidden, _ := designer.HiddenWall(dir)
	return respond(c, http.StatusOK, echo.Map{"data": echo.Map{
		"hidden":    hidden,
		"opacities": designer.WallOpacities(dir),
	}})
}

// owned loads the design named by :id and checks the caller owns it.
// verb completes "Not authorized to ... this room design".
func (h *RoomDesignHandler) owned(c echo.Context, verb string) (*model.RoomDesign, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authorized to access this route")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid room design id")
	}

	done := prometheus.TrackDBOperation("query")
	var design model.RoomDesign
	err := h.db.WithContext(c.Request().Context()).First(&design, id).Error
	done(time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Room design not found")
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to load room design", zap.Uint("design_id", id), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch room design").SetInternal(err)
	}
	if design.UserID != user.ID {
		logger.FromContext(c).Warn("Room design owner mismatch",
			zap.Uint("design_id", id),
			zap.Uint("user_id", user.ID))
		return nil, echo.NewHTTPError(http.StatusForbidden, "Not authorized to "+verb+" this room design")
	}
	return &design, nil
}

// apply copies the provided fields onto d and normalizes the result
func (h *RoomDesignHandler) apply(d *model.RoomDesign, in *designInput) error {
	if in.Name != nil {
		if err := model.ValidateDesignName(*in.Name); err != nil {
			return err
		}
		d.Name = *in.Name
	}

	room := d.Room()
	if in.WallColors != nil {
		room.WallColors = *in.WallColors
	}
	if in.FloorColor != nil {
		room.FloorColor = *in.FloorColor
	}
	if in.Dimensions != nil {
		room.Dimensions = *in.Dimensions
	}
	items := []designer.Placement(d.Items)
	if in.Items != nil {
		items = *in.Items
	}

	canvas, err := designer.NewCanvas(room, items)
	if err != nil {
		return err
	}
	d.Apply(canvas)
	return nil
}

func (h *RoomDesignHandler) save(c echo.Context, d *model.RoomDesign, action string, body echo.Map, status ...int) error {
	done := prometheus.TrackDBOperation("update")
	err := h.db.WithContext(c.Request().Context()).Save(d).Error
	done(time.Now())
	if err != nil {
		logger.FromContext(c).Error("Failed to save room design", zap.Uint("design_id", d.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to update room design", err)
	}

	h.changed(action, d)
	code := http.StatusOK
	if len(status) > 0 {
		code = status[0]
	}
	return respond(c, code, body)
}

func (h *RoomDesignHandler) changed(action string, d *model.RoomDesign) {
	prometheus.RecordDesignOperation(action)
	if h.notifier != nil {
		h.notifier.NotifyDesignChange(realtime.DesignEvent{Action: action, DesignID: d.ID, UserID: d.UserID})
	}
}
