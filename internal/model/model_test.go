package model

import (
	"errors"
	"testing"

	"furniture-service/internal/designer"

	"gorm.io/datatypes"
)

func validProduct() Product {
	return Product{
		Title:       "Oak Sofa",
		Description: "Three seater",
		Price:       499,
		Category:    CategoryLivingRoom,
		Thumbnail:   "/uploads/images/a.png",
		ModelURL:    "/uploads/models/a.glb",
		Dimensions:  datatypes.NewJSONType(designer.Dimensions{Width: 200, Height: 80, Length: 90}),
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Product)
		field  string
	}{
		{"valid", func(p *Product) {}, ""},
		{"free product", func(p *Product) { p.Price = 0 }, ""},
		{"missing title", func(p *Product) { p.Title = "  " }, "title"},
		{"long title", func(p *Product) { p.Title = string(make([]byte, 101)) }, "title"},
		{"missing description", func(p *Product) { p.Description = "" }, "description"},
		{"negative price", func(p *Product) { p.Price = -1 }, "price"},
		{"unknown category", func(p *Product) { p.Category = "Garage" }, "category"},
		{"rating too high", func(p *Product) { p.Rating = 5.5 }, "rating"},
		{"missing thumbnail", func(p *Product) { p.Thumbnail = "" }, "thumbnail"},
		{"missing model", func(p *Product) { p.ModelURL = "" }, "modelUrl"},
		{"missing dimensions", func(p *Product) { p.Dimensions = datatypes.JSONType[designer.Dimensions]{} }, "dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)
			err := p.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestProductMediaURLs(t *testing.T) {
	p := validProduct()
	p.Images = []string{"/uploads/images/b.png"}
	got := p.MediaURLs()
	if len(got) != 3 || got[0] != p.Thumbnail || got[2] != p.ModelURL {
		t.Errorf("MediaURLs() = %v", got)
	}
}

func TestUserPassword(t *testing.T) {
	var u User
	if err := u.SetPassword("secret1"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if u.Password == "secret1" {
		t.Fatal("password stored in plain text")
	}
	if !u.CheckPassword("secret1") {
		t.Error("CheckPassword(correct) = false")
	}
	if u.CheckPassword("secret2") {
		t.Error("CheckPassword(wrong) = true")
	}
	if got := NormalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestRoomDesignCanvasRoundTrip(t *testing.T) {
	d := RoomDesign{Name: "Lounge", Items: []designer.Placement{{ID: "a", Position: designer.Vec3{50, 1, 0}}}}

	c, err := d.Canvas()
	if err != nil {
		t.Fatalf("Canvas() error = %v", err)
	}
	if err := c.SetFloorColor("#101010"); err != nil {
		t.Fatalf("SetFloorColor() error = %v", err)
	}
	d.Apply(c)

	if d.FloorColor != "#101010" {
		t.Errorf("FloorColor = %q", d.FloorColor)
	}
	if d.Dimensions.Data().Width != designer.DefaultRoomWidth {
		t.Errorf("default dimensions not applied: %+v", d.Dimensions.Data())
	}
	if d.WallColors.Data() != designer.DefaultWallColors() {
		t.Errorf("WallColors = %+v", d.WallColors.Data())
	}
	if d.Items[0].Position[designer.AxisX] != 10 {
		t.Errorf("stored item not clamped: %v", d.Items[0].Position)
	}
}

func TestValidateDesignName(t *testing.T) {
	if err := ValidateDesignName("Bedroom"); err != nil {
		t.Errorf("ValidateDesignName() error = %v", err)
	}
	if err := ValidateDesignName(""); err == nil {
		t.Error("ValidateDesignName(\"\") succeeded")
	}
}
