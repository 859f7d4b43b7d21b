package model

// All returns every model the service migrates
func All() []interface{} {
	return []interface{}{&User{}, &Product{}, &RoomDesign{}}
}
