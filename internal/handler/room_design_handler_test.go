package handler

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"

	"furniture-service/internal/designer"
	"furniture-service/internal/model"
	"furniture-service/internal/testutil"
	"furniture-service/pkg/config"
)

type designResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	Data           model.RoomDesign   `json:"data"`
	Item           designer.Placement `json:"item"`
	SelectedItemID string             `json:"selectedItemId"`
}

type designListResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Data    []model.RoomDesign `json:"data"`
}

// createDesign stores a design through the API and returns it
func createDesign(t *testing.T, env *testEnv, headers map[string]string, name string, items []designer.Placement) model.RoomDesign {
	t.Helper()
	rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/room-designs", map[string]interface{}{
		"name":  name,
		"items": items,
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var body designResponse
	testutil.AssertJSON(t, rec, &body)
	return body.Data
}

func designPath(d model.RoomDesign, suffix string) string {
	return fmt.Sprintf("/api/room-designs/%d%s", d.ID, suffix)
}

func TestCreateDesignAppliesDefaults(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	user, headers := env.as(t, model.RoleUser)

	d := createDesign(t, env, headers, "Living room", []designer.Placement{
		{Title: "Stored chair", Position: designer.Vec3{40, -2, 1}},
	})

	if d.ID == 0 || d.UserID != user.ID || d.Name != "Living room" {
		t.Fatalf("design = %+v", d)
	}
	if got := d.Room(); got.FloorColor != designer.DefaultFloorColor ||
		got.WallColors.Front != designer.DefaultWallColor ||
		got.WallColors.Left != designer.DefaultSideWallColor ||
		got.Dimensions != (designer.RoomDimensions{Width: 20, Depth: 20, Height: 5}) {
		t.Errorf("room = %+v", got)
	}

	if len(d.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(d.Items))
	}
	item := d.Items[0]
	if item.ID == "" || item.Scale != designer.DefaultScale || item.Color != designer.DefaultItemColor || item.Type != designer.DefaultItemType {
		t.Errorf("item defaults = %+v", item)
	}
	if item.Position != (designer.Vec3{10, 0, 1}) {
		t.Errorf("position = %v, want clamped [10 0 1]", item.Position)
	}

	if got := env.events.designActions(); len(got) != 1 || got[0] != "create" {
		t.Errorf("events = %v", got)
	}
}

func TestCreateDesignPartialWallColors(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleUser)

	tests := []struct {
		name  string
		walls map[string]string
		want  designer.WallColors
	}{
		{
			"shared color fills every wall",
			map[string]string{"all": "#FFFFFF"},
			designer.WallColors{All: "#FFFFFF", Front: "#FFFFFF", Back: "#FFFFFF", Left: "#FFFFFF", Right: "#FFFFFF"},
		},
		{
			"one wall differs",
			map[string]string{"all": "#FFFFFF", "left": "#000000"},
			designer.WallColors{Front: "#FFFFFF", Back: "#FFFFFF", Left: "#000000", Right: "#FFFFFF"},
		},
		{
			"single wall over stock colors",
			map[string]string{"front": "#123456"},
			designer.WallColors{Front: "#123456", Back: designer.DefaultWallColor, Left: designer.DefaultSideWallColor, Right: designer.DefaultSideWallColor},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/room-designs", map[string]interface{}{
				"name":       tt.name,
				"items":      []designer.Placement{},
				"wallColors": tt.walls,
			}, headers))
			testutil.AssertStatus(t, rec, http.StatusCreated)
			var body designResponse
			testutil.AssertJSON(t, rec, &body)
			if got := body.Data.WallColors.Data(); got != tt.want {
				t.Errorf("walls = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCreateDesignRejections(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleUser)

	tests := []struct {
		name    string
		body    map[string]interface{}
		headers map[string]string
		status  int
		message string
	}{
		{"unauthenticated", map[string]interface{}{"name": "x", "items": []string{}}, nil, http.StatusUnauthorized, "Not authorized to access this route"},
		{"missing name", map[string]interface{}{"items": []string{}}, headers, http.StatusBadRequest, "Please provide a name for your design"},
		{"blank name", map[string]interface{}{"name": "  ", "items": []string{}}, headers, http.StatusBadRequest, "Please provide a name for your design"},
		{"long name", map[string]interface{}{"name": strings.Repeat("n", 101), "items": []string{}}, headers, http.StatusBadRequest, ""},
		{"missing items", map[string]interface{}{"name": "x"}, headers, http.StatusBadRequest, "Please provide the design items"},
		{"bad floor", map[string]interface{}{"name": "x", "items": []string{}, "floorColor": "blue"}, headers, http.StatusBadRequest, ""},
		{"bad dimensions", map[string]interface{}{"name": "x", "items": []string{}, "dimensions": map[string]float64{"width": -1, "depth": 5, "height": 5}}, headers, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/room-designs", tt.body, tt.headers))
			assertFailure(t, rec, tt.status, tt.message)
		})
	}
}

func TestListDesignsOwnOnly(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, alice := env.as(t, model.RoleUser)
	_, bob := env.as(t, model.RoleUser)

	createDesign(t, env, alice, "first", []designer.Placement{})
	createDesign(t, env, bob, "bobs", []designer.Placement{})
	createDesign(t, env, alice, "second", []designer.Placement{})

	rec := env.serve(testutil.MakeRequest(http.MethodGet, "/api/room-designs", nil, alice))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body designListResponse
	testutil.AssertJSON(t, rec, &body)
	if body.Count != 2 || len(body.Data) != 2 {
		t.Fatalf("count = %d, data = %d", body.Count, len(body.Data))
	}
	if body.Data[0].Name != "second" || body.Data[1].Name != "first" {
		t.Errorf("order = %q, %q; want newest first", body.Data[0].Name, body.Data[1].Name)
	}
}

func TestDesignOwnership(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, owner := env.as(t, model.RoleUser)
	_, other := env.as(t, model.RoleAdmin)
	d := createDesign(t, env, owner, "mine", []designer.Placement{})

	tests := []struct {
		method  string
		path    string
		body    interface{}
		message string
	}{
		{http.MethodGet, designPath(d, ""), nil, "Not authorized to access this room design"},
		{http.MethodPut, designPath(d, ""), map[string]string{"name": "stolen"}, "Not authorized to update this room design"},
		{http.MethodDelete, designPath(d, ""), nil, "Not authorized to delete this room design"},
		{http.MethodPut, designPath(d, "/floor"), map[string]string{"color": "#000"}, "Not authorized to update this room design"},
		{http.MethodGet, designPath(d, "/walls?dz=1"), nil, "Not authorized to access this room design"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.serve(testutil.MakeRequest(tt.method, tt.path, tt.body, other))
			assertFailure(t, rec, http.StatusForbidden, tt.message)
		})
	}

	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodGet, "/api/room-designs/9999", nil, owner)), http.StatusNotFound, "Room design not found")
	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodGet, "/api/room-designs/latest", nil, owner)), http.StatusBadRequest, "Invalid room design id")
}

func TestUpdateAndDeleteDesign(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleUser)
	d := createDesign(t, env, headers, "draft", []designer.Placement{{Title: "a", Position: designer.Vec3{8, 1, 8}}})

	rec := env.serve(testutil.MakeRequest(http.MethodPut, designPath(d, ""), map[string]interface{}{
		"name":       "final",
		"dimensions": map[string]float64{"width": 10, "depth": 10, "height": 3},
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var updated designResponse
	testutil.AssertJSON(t, rec, &updated)
	if updated.Data.Name != "final" || updated.Data.Dimensions.Data().Width != 10 {
		t.Errorf("updated = %+v", updated.Data)
	}
	// shrinking the room pulls items back inside it
	if pos := updated.Data.Items[0].Position; pos != (designer.Vec3{5, 1, 5}) {
		t.Errorf("position = %v, want [5 1 5]", pos)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodGet, designPath(d, ""), nil, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var fetched designResponse
	testutil.AssertJSON(t, rec, &fetched)
	if fetched.Data.Name != "final" {
		t.Errorf("fetched name = %q", fetched.Data.Name)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodDelete, designPath(d, ""), nil, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if body := strings.TrimSpace(rec.Body.String()); !strings.Contains(body, `"data":{}`) {
		t.Errorf("delete body = %s", body)
	}
	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodGet, designPath(d, ""), nil, headers)), http.StatusNotFound, "Room design not found")

	want := "create,update,delete"
	if got := strings.Join(env.events.designActions(), ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestDesignItems(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleDesigner)
	product := testutil.CreateTestProduct(t, env.db, "Armchair")
	d := createDesign(t, env, headers, "lounge", []designer.Placement{})

	rec := env.serve(testutil.MakeRequest(http.MethodPost, designPath(d, "/items"), map[string]interface{}{
		"productId": product.ID,
		"color":     "#112233",
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var added designResponse
	testutil.AssertJSON(t, rec, &added)

	item := added.Item
	if len(added.Data.Items) != 1 || added.SelectedItemID != item.ID {
		t.Fatalf("items = %d, selected = %q, item = %q", len(added.Data.Items), added.SelectedItemID, item.ID)
	}
	if item.ProductID != fmt.Sprint(product.ID) || item.Title != "Armchair" || item.Type != model.CategoryLivingRoom ||
		item.Color != "#112233" || item.Position != designer.DefaultPosition || item.Dimensions.Width != 120 {
		t.Errorf("item = %+v", item)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodPost, designPath(d, "/items"), map[string]interface{}{"productId": product.ID}, headers))
	assertFailure(t, rec, http.StatusConflict, "This product is already in the room")

	rec = env.serve(testutil.MakeRequest(http.MethodPost, designPath(d, "/items"), map[string]interface{}{"productId": 4242}, headers))
	assertFailure(t, rec, http.StatusNotFound, "Product not found")

	rec = env.serve(testutil.MakeRequest(http.MethodPost, designPath(d, "/items"), map[string]interface{}{"productId": product.ID + 1000, "scale": -1}, headers))
	assertFailure(t, rec, http.StatusNotFound, "Product not found")

	itemPath := designPath(d, "/items/"+item.ID)
	rec = env.serve(testutil.MakeRequest(http.MethodPatch, itemPath, map[string]interface{}{
		"position":     []float64{50, -1, 3},
		"quarterTurns": 1,
		"scale":        2,
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var patched designResponse
	testutil.AssertJSON(t, rec, &patched)
	if patched.Item.Position != (designer.Vec3{10, 0, 3}) {
		t.Errorf("position = %v, want [10 0 3]", patched.Item.Position)
	}
	if math.Abs(patched.Item.Rotation[1]-math.Pi/2) > 1e-9 || patched.Item.Scale != 2 {
		t.Errorf("rotation = %v scale = %v", patched.Item.Rotation, patched.Item.Scale)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodPatch, itemPath, map[string]interface{}{
		"move": map[string]interface{}{"axis": "z", "value": -30},
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	patched = designResponse{}
	testutil.AssertJSON(t, rec, &patched)
	if patched.Item.Position != (designer.Vec3{10, 0, -10}) {
		t.Errorf("moved position = %v, want [10 0 -10]", patched.Item.Position)
	}

	patchErrors := []struct {
		name    string
		path    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{"bad color", itemPath, map[string]interface{}{"color": "red"}, http.StatusBadRequest, designer.ErrInvalidColor.Error()},
		{"bad axis", itemPath, map[string]interface{}{"move": map[string]interface{}{"axis": "w", "value": 1}}, http.StatusBadRequest, "Invalid axis"},
		{"zero scale", itemPath, map[string]interface{}{"scale": 0}, http.StatusBadRequest, designer.ErrInvalidScale.Error()},
		{"unknown item", designPath(d, "/items/nope"), map[string]interface{}{"scale": 1}, http.StatusNotFound, "Item not found in this design"},
	}
	for _, tt := range patchErrors {
		t.Run(tt.name, func(t *testing.T) {
			assertFailure(t, env.serve(testutil.MakeRequest(http.MethodPatch, tt.path, tt.body, headers)), tt.status, tt.message)
		})
	}

	rec = env.serve(testutil.MakeRequest(http.MethodDelete, itemPath, nil, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var removed designResponse
	testutil.AssertJSON(t, rec, &removed)
	if len(removed.Data.Items) != 0 {
		t.Errorf("items after delete = %d", len(removed.Data.Items))
	}
	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodDelete, itemPath, nil, headers)), http.StatusNotFound, "Item not found in this design")
}

func TestDesignWallsAndFloor(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleUser)
	d := createDesign(t, env, headers, "paint", []designer.Placement{})
	walls := designPath(d, "/walls")

	rec := env.serve(testutil.MakeRequest(http.MethodPut, walls, map[string]interface{}{"wall": "all", "color": "#FFFFFF"}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body designResponse
	testutil.AssertJSON(t, rec, &body)
	if wc := body.Data.WallColors.Data(); !wc.Uniform() || wc.Left != "#FFFFFF" || wc.All != "#FFFFFF" {
		t.Errorf("walls = %+v", wc)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodPut, walls, map[string]interface{}{"wall": "left", "color": "#000000", "uniform": false}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	body = designResponse{}
	testutil.AssertJSON(t, rec, &body)
	if wc := body.Data.WallColors.Data(); wc.Left != "#000000" || wc.Front != "#FFFFFF" || wc.All != "" {
		t.Errorf("walls = %+v", wc)
	}

	wallErrors := []struct {
		name string
		body map[string]interface{}
	}{
		{"uniform single wall", map[string]interface{}{"wall": "left", "color": "#000000", "uniform": true}},
		{"unknown wall", map[string]interface{}{"wall": "ceiling", "color": "#000000"}},
		{"bad color", map[string]interface{}{"wall": "all", "color": "white"}},
	}
	for _, tt := range wallErrors {
		t.Run(tt.name, func(t *testing.T) {
			assertFailure(t, env.serve(testutil.MakeRequest(http.MethodPut, walls, tt.body, headers)), http.StatusBadRequest, "")
		})
	}

	rec = env.serve(testutil.MakeRequest(http.MethodPut, designPath(d, "/floor"), map[string]string{"color": "#abc"}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	body = designResponse{}
	testutil.AssertJSON(t, rec, &body)
	if body.Data.FloorColor != "#abc" {
		t.Errorf("floor = %q", body.Data.FloorColor)
	}
	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodPut, designPath(d, "/floor"), map[string]string{"color": "wood"}, headers)), http.StatusBadRequest, "")
}

func TestDesignWallOpacities(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	_, headers := env.as(t, model.RoleUser)
	d := createDesign(t, env, headers, "view", []designer.Placement{})

	var body struct {
		Data struct {
			Hidden    string             `json:"hidden"`
			Opacities map[string]float64 `json:"opacities"`
		} `json:"data"`
	}
	rec := env.serve(testutil.MakeRequest(http.MethodGet, designPath(d, "/walls?dx=0.2&dy=-0.5&dz=-1"), nil, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.AssertJSON(t, rec, &body)

	if body.Data.Hidden != string(designer.WallBack) {
		t.Errorf("hidden = %q, want back", body.Data.Hidden)
	}
	for wall, opacity := range body.Data.Opacities {
		want := designer.WallOpacity
		if wall == string(designer.WallBack) {
			want = designer.HiddenWallOpacity
		}
		if opacity != want {
			t.Errorf("opacity[%s] = %v, want %v", wall, opacity, want)
		}
	}
	if len(body.Data.Opacities) != 4 {
		t.Errorf("opacities = %v", body.Data.Opacities)
	}

	assertFailure(t, env.serve(testutil.MakeRequest(http.MethodGet, designPath(d, "/walls?dx=left"), nil, headers)), http.StatusBadRequest, "Invalid camera direction")
}
