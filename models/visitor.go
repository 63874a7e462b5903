package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Visitor struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone" bson:"phone"`
	Company   string             `json:"company" bson:"company"`
	IDType    string             `json:"id_type" bson:"id_type"`
	IDNumber  string             `json:"id_number" bson:"id_number"`
	PhotoURL  string             `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	CreatedBy primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type VisitorSummary struct {
	ID      primitive.ObjectID `json:"id" bson:"_id"`
	Name    string             `json:"name" bson:"name"`
	Email   string             `json:"email" bson:"email"`
	Phone   string             `json:"phone" bson:"phone"`
	Company string             `json:"company,omitempty" bson:"company,omitempty"`
}

type VisitorCreatePayload struct {
	Name     string `json:"name" form:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" form:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" form:"phone" validate:"omitempty,max=30"`
	Company  string `json:"company" form:"company" validate:"omitempty,max=100"`
	IDType   string `json:"id_type" form:"id_type" validate:"omitempty,max=50"`
	IDNumber string `json:"id_number" form:"id_number" validate:"omitempty,max=50"`
}

// EmptyFields lists the required fields left blank, in form order.
func (p VisitorCreatePayload) EmptyFields() []string {
	var empty []string
	for _, f := range []struct{ name, value string }{
		{"name", p.Name},
		{"email", p.Email},
		{"phone", p.Phone},
		{"company", p.Company},
		{"id_type", p.IDType},
		{"id_number", p.IDNumber},
	} {
		if f.value == "" {
			empty = append(empty, f.name)
		}
	}
	return empty
}

type VisitorUpdatePayload struct {
	Name     string `json:"name,omitempty" form:"name" validate:"omitempty,max=100"`
	Email    string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" form:"phone" validate:"omitempty,max=30"`
	Company  string `json:"company,omitempty" form:"company" validate:"omitempty,max=100"`
	IDType   string `json:"id_type,omitempty" form:"id_type" validate:"omitempty,max=50"`
	IDNumber string `json:"id_number,omitempty" form:"id_number" validate:"omitempty,max=50"`
}
